package firestore

import (
	"context"
	"testing"

	"cloud.google.com/go/firestore"
)

func TestRunTransactionGuards(t *testing.T) {
	ctx := context.Background()

	if err := RunTransaction(ctx, nil, func(context.Context, *firestore.Transaction) error {
		return nil
	}); err == nil {
		t.Fatalf("expected error for nil client")
	}

	client := &firestore.Client{}
	if err := RunTransaction(ctx, client, nil); err == nil {
		t.Fatalf("expected error for nil transaction function")
	}
}
