package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/craftfolio/backend/internal/models"
)

// ErrDuplicateEmail is returned when registering with an email that already exists.
var ErrDuplicateEmail = errors.New("email already registered")

// ErrInvalidCredentials covers every login failure: an unknown identifier
// and a wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// AccountStore is the persistence surface the auth service needs.
type AccountStore interface {
	Create(ctx context.Context, a *models.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.Account, error)
}

type Service interface {
	Register(ctx context.Context, email, name, password string) (*models.Account, error)
	Login(ctx context.Context, identifier, password string) (*models.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

type service struct {
	store AccountStore
}

func NewService(store AccountStore) Service {
	return &service{store: store}
}

var _ Service = (*service)(nil)

func (s *service) Register(ctx context.Context, email, name, password string) (*models.Account, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	acc := &models.Account{
		ID:           uuid.New(),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
	}
	if err := s.store.Create(ctx, acc); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return acc, nil
}

func (s *service) Login(ctx context.Context, identifier, password string) (*models.Account, error) {
	acc, err := s.store.GetByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrInvalidCredentials
	}
	ok, err := VerifyPassword(password, acc.PasswordHash)
	if err != nil {
		// Includes ErrMalformedHash: data corruption, not a bad password.
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

func (s *service) GetAccount(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	return s.store.GetByID(ctx, id)
}
