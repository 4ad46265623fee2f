package nutrition

import (
	"context"
	"fmt"
	"strconv"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreStore keeps one document per user in the "nutrition" collection.
type FirestoreStore struct {
	store *firestore.Client
}

func NewFirestoreStore(store *firestore.Client) *FirestoreStore {
	return &FirestoreStore{store: store}
}

func (s *FirestoreStore) doc(userID uint64) *firestore.DocumentRef {
	return s.store.Collection("nutrition").Doc(strconv.FormatUint(userID, 10))
}

func (s *FirestoreStore) Load(ctx context.Context, userID uint64) (Document, error) {
	snap, err := s.doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("nutrition: getting document: %w", err)
	}
	var doc Document
	if err := snap.DataTo(&doc); err != nil {
		return Document{}, fmt.Errorf("nutrition: decoding document: %w", err)
	}
	return doc, nil
}

func (s *FirestoreStore) Save(ctx context.Context, userID uint64, doc Document) error {
	if _, err := s.doc(userID).Set(ctx, doc); err != nil {
		return fmt.Errorf("nutrition: saving document: %w", err)
	}
	return nil
}
