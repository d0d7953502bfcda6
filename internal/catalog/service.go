package catalog

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// RepositoryPort is the persistence surface the service depends on.
type RepositoryPort interface {
	Insert(ctx context.Context, kind Kind, e Entry) (Entry, error)
	List(ctx context.Context, kind Kind, ownerID int64) ([]Entry, error)
	Get(ctx context.Context, kind Kind, ownerID, id int64) (Entry, error)
	Rename(ctx context.Context, kind Kind, ownerID, id int64, name string) (Entry, error)
	DeleteCascade(ctx context.Context, kind Kind, ownerID, id int64, detach func(context.Context, pgx.Tx) error) error
}

// ProductDetacher clears product references to a deleted entry within the
// delete's transaction.
type ProductDetacher interface {
	DetachReference(ctx context.Context, tx pgx.Tx, ownerID int64, column string, refID int64) error
}

type Service struct {
	repo     RepositoryPort
	products ProductDetacher
	upper    cases.Caser
}

func NewService(repo RepositoryPort, products ProductDetacher) *Service {
	return &Service{repo: repo, products: products, upper: cases.Upper(language.English)}
}

// normalize trims the name and uppercases it for collections that store
// canonical uppercase names.
func (s *Service) normalize(kind Kind, name string) string {
	name = strings.TrimSpace(name)
	if kinds[kind].uppercase {
		name = s.upper.String(name)
	}
	return name
}

func (s *Service) Create(ctx context.Context, kind Kind, ownerID int64, req UpsertRequest) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrBadKind
	}
	return s.repo.Insert(ctx, kind, Entry{OwnerID: ownerID, Name: s.normalize(kind, req.Name)})
}

func (s *Service) List(ctx context.Context, kind Kind, ownerID int64) ([]Entry, error) {
	if !kind.Valid() {
		return nil, ErrBadKind
	}
	return s.repo.List(ctx, kind, ownerID)
}

func (s *Service) Get(ctx context.Context, kind Kind, ownerID, id int64) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrBadKind
	}
	return s.repo.Get(ctx, kind, ownerID, id)
}

func (s *Service) Rename(ctx context.Context, kind Kind, ownerID, id int64, req UpsertRequest) (Entry, error) {
	if !kind.Valid() {
		return Entry{}, ErrBadKind
	}
	return s.repo.Rename(ctx, kind, ownerID, id, s.normalize(kind, req.Name))
}

// Delete removes the entry and clears any product rows still pointing at it.
// Products survive with a null reference rather than blocking the delete.
// Detach and delete share one transaction: a failed delete rolls the detach
// back.
func (s *Service) Delete(ctx context.Context, kind Kind, ownerID, id int64) error {
	info, ok := kinds[kind]
	if !ok {
		return ErrBadKind
	}
	if _, err := s.repo.Get(ctx, kind, ownerID, id); err != nil {
		return err
	}
	return s.repo.DeleteCascade(ctx, kind, ownerID, id, func(ctx context.Context, tx pgx.Tx) error {
		return s.products.DetachReference(ctx, tx, ownerID, info.refColumn, id)
	})
}
