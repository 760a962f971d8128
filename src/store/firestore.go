package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore adapts a Firestore client to Client.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Collection(name string) Collection {
	ref := f.client.Collection(name)
	return &fsCollection{ref: ref, fsQuery: fsQuery{q: ref.Query}}
}

func (f *Firestore) Batch() Batch {
	return &fsBatch{batch: f.client.Batch()}
}

type fsQuery struct {
	q firestore.Query
}

func (q fsQuery) WhereEqualTo(field string, value any) Query {
	return fsQuery{q: q.q.Where(field, "==", value)}
}

func (q fsQuery) WhereIn(field string, values []any) Query {
	return fsQuery{q: q.q.Where(field, "in", values)}
}

func (q fsQuery) OrderBy(field string) Query {
	return fsQuery{q: q.q.OrderBy(field, firestore.Asc)}
}

func (q fsQuery) Limit(n int) Query {
	return fsQuery{q: q.q.Limit(n)}
}

func (q fsQuery) Get(ctx context.Context) (*QuerySnapshot, error) {
	docs, err := q.q.Documents(ctx).GetAll()
	if err != nil {
		return nil, err
	}

	snapshot := &QuerySnapshot{Documents: make([]*DocumentSnapshot, 0, len(docs))}
	for _, doc := range docs {
		snapshot.Documents = append(snapshot.Documents, &DocumentSnapshot{
			Ref:    &fsDocument{ref: doc.Ref},
			ID:     doc.Ref.ID,
			Exists: doc.Exists(),
			Data:   doc.Data(),
		})
	}
	return snapshot, nil
}

type fsCollection struct {
	fsQuery
	ref *firestore.CollectionRef
}

func (c *fsCollection) Document(id string) Document {
	return &fsDocument{ref: c.ref.Doc(id)}
}

func (c *fsCollection) Add(ctx context.Context, data map[string]any) (Document, error) {
	ref, _, err := c.ref.Add(ctx, toFirestoreData(data))
	if err != nil {
		return nil, err
	}
	return &fsDocument{ref: ref}, nil
}

type fsDocument struct {
	ref *firestore.DocumentRef
}

func (d *fsDocument) ID() string   { return d.ref.ID }
func (d *fsDocument) Path() string { return d.ref.Path }

func (d *fsDocument) Get(ctx context.Context) (*DocumentSnapshot, error) {
	doc, err := d.ref.Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return &DocumentSnapshot{Ref: d, ID: d.ref.ID}, nil
		}
		return nil, err
	}
	return &DocumentSnapshot{Ref: d, ID: d.ref.ID, Exists: doc.Exists(), Data: doc.Data()}, nil
}

func (d *fsDocument) Set(ctx context.Context, data map[string]any) error {
	_, err := d.ref.Set(ctx, toFirestoreData(data))
	return err
}

func (d *fsDocument) Update(ctx context.Context, fields ...Update) error {
	_, err := d.ref.Update(ctx, toFirestoreUpdates(fields))
	if status.Code(err) == codes.NotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, d.ref.Path)
	}
	return err
}

func (d *fsDocument) Delete(ctx context.Context) error {
	_, err := d.ref.Delete(ctx)
	return err
}

func (d *fsDocument) Collection(name string) Collection {
	ref := d.ref.Collection(name)
	return &fsCollection{ref: ref, fsQuery: fsQuery{q: ref.Query}}
}

type fsBatch struct {
	batch *firestore.WriteBatch
}

func (b *fsBatch) Set(doc Document, data map[string]any) Batch {
	b.batch.Set(firestoreRef(doc), toFirestoreData(data))
	return b
}

func (b *fsBatch) Update(doc Document, fields ...Update) Batch {
	b.batch.Update(firestoreRef(doc), toFirestoreUpdates(fields))
	return b
}

func (b *fsBatch) Delete(doc Document) Batch {
	b.batch.Delete(firestoreRef(doc))
	return b
}

func (b *fsBatch) Commit(ctx context.Context) error {
	_, err := b.batch.Commit(ctx)
	return err
}

func firestoreRef(doc Document) *firestore.DocumentRef {
	fd, ok := doc.(*fsDocument)
	if !ok {
		panic(fmt.Sprintf("store: document %s does not belong to a Firestore client", doc.Path()))
	}
	return fd.ref
}

func toFirestoreValue(value any) any {
	switch v := value.(type) {
	case arrayUnion:
		return firestore.ArrayUnion(v.values...)
	case arrayRemove:
		return firestore.ArrayRemove(v.values...)
	case serverTimestamp:
		return firestore.ServerTimestamp
	}
	return value
}

func toFirestoreData(data map[string]any) map[string]any {
	out := make(map[string]any, len(data))
	for key, value := range data {
		out[key] = toFirestoreValue(value)
	}
	return out
}

func toFirestoreUpdates(fields []Update) []firestore.Update {
	updates := make([]firestore.Update, 0, len(fields))
	for _, field := range fields {
		updates = append(updates, firestore.Update{Path: field.Field, Value: toFirestoreValue(field.Value)})
	}
	return updates
}
