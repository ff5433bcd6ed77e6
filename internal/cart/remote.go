package cart

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Remote is the persisted side of a cart as seen by a client. The HTTP API
// client implements it, and LocalRemote adapts the in-process Service.
type Remote interface {
	Load(ctx context.Context, owner string) (*Cart, error)
	Add(ctx context.Context, owner string, productID uuid.UUID, qty int) error
	SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error
	Remove(ctx context.Context, owner string, productID uuid.UUID) error
	Clear(ctx context.Context, owner string) error
}

// LocalRemote serves Remote straight from a Service.
type LocalRemote struct {
	svc Service
}

func NewLocalRemote(svc Service) (*LocalRemote, error) {
	if svc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	return &LocalRemote{svc: svc}, nil
}

func (l *LocalRemote) Load(ctx context.Context, owner string) (*Cart, error) {
	return l.svc.Load(ctx, owner)
}

func (l *LocalRemote) Add(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	_, err := l.svc.Add(ctx, owner, productID, qty)
	return err
}

func (l *LocalRemote) SetQuantity(ctx context.Context, owner string, productID uuid.UUID, qty int) error {
	_, err := l.svc.UpdateQuantity(ctx, owner, productID, qty)
	return err
}

func (l *LocalRemote) Remove(ctx context.Context, owner string, productID uuid.UUID) error {
	_, err := l.svc.Remove(ctx, owner, productID)
	return err
}

func (l *LocalRemote) Clear(ctx context.Context, owner string) error {
	return l.svc.Clear(ctx, owner)
}
