package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"go.pilab.hu/idlink/domain"
)

// SessionTxRunner runs functions inside a MongoDB session transaction.
// Requires a replica set or sharded deployment.
type SessionTxRunner struct {
	client *mongo.Client
}

func NewSessionTxRunner(client *mongo.Client) *SessionTxRunner {
	return &SessionTxRunner{client: client}
}

func (r *SessionTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	sess, err := r.client.StartSession()
	if err != nil {
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}

// PassthroughTxRunner executes the function directly, without a transaction.
// For standalone deployments that cannot open sessions; the unique indexes
// still hold, but a mid-sequence failure can leave a partial write.
type PassthroughTxRunner struct{}

func (PassthroughTxRunner) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ domain.TxRunner = (*SessionTxRunner)(nil)
	_ domain.TxRunner = PassthroughTxRunner{}
)
