package admin

import (
	"context"
	"fmt"

	"github.com/sareesanskriti/storefront/internal/catalog"
	serr "github.com/sareesanskriti/storefront/internal/errors"
)

// Service ties the admin API to the persisted admin session.
type Service struct {
	client   *Client
	sessions *SessionStore
}

func NewService(client *Client, sessions *SessionStore) *Service {
	return &Service{client: client, sessions: sessions}
}

// Login authenticates against the API and stores the session.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	token, err := s.client.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	sess := Session{Username: email, Token: token, IsAuthenticated: true}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return Session{}, fmt.Errorf("failed to store admin session: %w", err)
	}
	return sess, nil
}

func (s *Service) Logout(ctx context.Context) error {
	if err := s.sessions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear admin session: %w", err)
	}
	return nil
}

// Current returns the stored session and whether it is usable.
func (s *Service) Current(ctx context.Context) (Session, bool) {
	return s.sessions.Load(ctx), s.sessions.IsAuthenticated(ctx)
}

func (s *Service) token(ctx context.Context) (string, error) {
	if !s.sessions.IsAuthenticated(ctx) {
		return "", serr.ErrUnauthorized
	}
	return s.sessions.Token(ctx), nil
}

func (s *Service) CreateProduct(ctx context.Context, in ProductInput, img *Image) (*catalog.Product, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.CreateProduct(ctx, token, in, img)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, patch ProductPatch, img *Image) (*catalog.Product, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.client.UpdateProduct(ctx, token, id, patch, img)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	token, err := s.token(ctx)
	if err != nil {
		return err
	}
	return s.client.DeleteProduct(ctx, token, id)
}

// Orders is best effort and returns an empty list when not logged in.
func (s *Service) Orders(ctx context.Context) []Order {
	token, err := s.token(ctx)
	if err != nil {
		return []Order{}
	}
	return s.client.Orders(ctx, token)
}
