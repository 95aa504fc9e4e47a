package gateway

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

type fakeGateway struct{ provider Provider }

func (f fakeGateway) Provider() Provider { return f.provider }

func (f fakeGateway) CreateTransaction(context.Context, Charge) (*Transaction, error) {
	return nil, nil
}

func (f fakeGateway) ParseCallback(*http.Request) (*Callback, error) { return nil, nil }

func (f fakeGateway) Respond(http.ResponseWriter, *Callback, error) {}

func TestRegistry(t *testing.T) {
	r := NewRegistry(fakeGateway{Payme}, fakeGateway{Click})

	gw, err := r.Get("payme")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if gw.Provider() != Payme {
		t.Errorf("expected payme, got %s", gw.Provider())
	}

	if _, err := r.Get("paypal"); !errors.Is(err, ErrUnknownProvider) {
		t.Errorf("expected ErrUnknownProvider, got %v", err)
	}

	providers := r.Providers()
	if len(providers) != 2 || providers[0] != Click || providers[1] != Payme {
		t.Errorf("unexpected providers %v", providers)
	}
}
