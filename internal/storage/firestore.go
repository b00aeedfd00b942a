package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/shift-code-watcher/internal/models"
)

// stateRecord is the Firestore document holding the known set. The set is
// kept as an encoded payload so the file and Firestore backends share one
// tolerant decoder.
type stateRecord struct {
	Payload   string    `firestore:"payload"`
	Count     int       `firestore:"count"`
	UpdatedAt time.Time `firestore:"updatedAt"`
}

type FirestoreStore struct {
	client     *firestore.Client
	collection string
	document   string
}

func NewFirestore(ctx context.Context, projectID, collection, document string) (*FirestoreStore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreStore{client: client, collection: collection, document: document}, nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}

func (s *FirestoreStore) location() string {
	return s.collection + "/" + s.document
}

// Load reads the known set. A missing document means first run.
func (s *FirestoreStore) Load(ctx context.Context) (models.KnownSet, error) {
	docSnap, err := s.client.Collection(s.collection).Doc(s.document).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			slog.Info("Firestore state document not found. Assuming first run.", "document", s.location())
			return models.NewKnownSet(), nil
		}
		return models.KnownSet{}, fmt.Errorf("failed to get document from Firestore: %w", err)
	}
	if !docSnap.Exists() {
		return models.NewKnownSet(), nil
	}

	var rec stateRecord
	if err := docSnap.DataTo(&rec); err != nil {
		return models.KnownSet{}, &models.StoreCorruptError{Location: s.location(), Err: err}
	}
	return decodeRecord(rec, s.location())
}

// Save overwrites the state document in a single write.
func (s *FirestoreStore) Save(ctx context.Context, set models.KnownSet) error {
	rec, err := encodeRecord(set)
	if err != nil {
		return &models.StoreWriteError{Location: s.location(), Err: err}
	}

	if _, err := s.client.Collection(s.collection).Doc(s.document).Set(ctx, rec); err != nil {
		return &models.StoreWriteError{Location: s.location(), Err: err}
	}
	slog.Info("Saved known codes to Firestore", "document", s.location(), "count", rec.Count)
	return nil
}

func encodeRecord(set models.KnownSet) (stateRecord, error) {
	data, err := Encode(set)
	if err != nil {
		return stateRecord{}, err
	}
	return stateRecord{
		Payload:   string(data),
		Count:     set.Len(),
		UpdatedAt: set.UpdatedAt,
	}, nil
}

func decodeRecord(rec stateRecord, location string) (models.KnownSet, error) {
	if rec.Payload == "" {
		return models.KnownSet{}, &models.StoreCorruptError{Location: location, Err: fmt.Errorf("empty payload")}
	}
	set, err := Decode([]byte(rec.Payload))
	if err != nil {
		return models.KnownSet{}, &models.StoreCorruptError{Location: location, Err: err}
	}
	if set.UpdatedAt.IsZero() {
		set.UpdatedAt = rec.UpdatedAt
	}
	return set, nil
}
