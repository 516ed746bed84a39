package transport

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	apperrors "warrant-sniper/internal/errors"
	"warrant-sniper/internal/logging"
	"warrant-sniper/pkg/utils"
)

// MongoConfig holds the Mongo transport configuration.
type MongoConfig struct {
	URI               string
	Database          string
	CommandCollection string
	ResultCollection  string
	ConnectTimeout    time.Duration
}

// MongoTransport implements Transport on a MongoDB document store.
// The backend engine watches the command collection for pending
// records and writes one result document per sanitized stock code.
type MongoTransport struct {
	client   *mongo.Client
	commands *mongo.Collection
	results  *mongo.Collection
	logger   zerolog.Logger
}

// commandDoc is the wire shape of a search command record.
type commandDoc struct {
	StockCode string    `bson:"stock_code"`
	Status    string    `bson:"status"`
	Timestamp time.Time `bson:"timestamp"`
}

// resultDoc is the wire shape of a result document. Results stay raw:
// the normalizer owns interpretation of the backend's item shape.
type resultDoc struct {
	ID        string    `bson:"_id"`
	Query     string    `bson:"query"`
	UpdatedAt time.Time `bson:"updatedAt"`
	Results   []RawItem `bson:"results"`
}

// NewMongoTransport connects to the document store. Connection is
// retried with backoff before giving up.
func NewMongoTransport(ctx context.Context, cfg MongoConfig, logger zerolog.Logger) (*MongoTransport, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	var client *mongo.Client
	err := utils.Retry(ctx, utils.DefaultRetryConfig(), func() error {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()

		c, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
		if err != nil {
			return err
		}
		if err := c.Ping(connectCtx, nil); err != nil {
			_ = c.Disconnect(connectCtx)
			return err
		}
		client = c
		return nil
	})
	if err != nil {
		return nil, apperrors.NewTransportError("connect", "", err)
	}

	db := client.Database(cfg.Database)
	t := &MongoTransport{
		client:   client,
		commands: db.Collection(cfg.CommandCollection),
		results:  db.Collection(cfg.ResultCollection),
		logger:   logger,
	}

	logger.Debug().Str("database", cfg.Database).Msg("Mongo transport connected")
	return t, nil
}

// SubmitCommand inserts a pending command record and returns its ID.
func (t *MongoTransport) SubmitCommand(ctx context.Context, stockCode string) (string, error) {
	start := time.Now()
	res, err := t.commands.InsertOne(ctx, commandDoc{
		StockCode: stockCode,
		Status:    "pending",
		Timestamp: time.Now().UTC(),
	})
	logging.LogTransportCall(t.logger, "submit_command", stockCode, time.Since(start), err)
	if err != nil {
		return "", apperrors.NewTransportError("submit_command", stockCode, err)
	}

	id := ""
	if oid, ok := res.InsertedID.(interface{ Hex() string }); ok {
		id = oid.Hex()
	}
	return id, nil
}

// WatchResult watches the result document for the stock code. The
// current document, if any, is delivered first; subsequent changes
// stream from a change stream scoped to that document key.
func (t *MongoTransport) WatchResult(ctx context.Context, stockCode string, fn ResultHandler) (CancelFunc, error) {
	docID := ResultDocID(stockCode)

	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: bson.D{
			{Key: "documentKey._id", Value: docID},
		}}},
	}
	opts := options.ChangeStream().SetFullDocument(options.UpdateLookup)

	streamCtx, stop := context.WithCancel(ctx)
	stream, err := t.results.Watch(streamCtx, pipeline, opts)
	if err != nil {
		stop()
		return nil, apperrors.NewTransportError("watch_result", stockCode, err)
	}

	w := &mongoWatch{fn: fn}

	// Deliver an already-present result before streaming changes, so
	// a completion written between submit and watch is not missed.
	var existing resultDoc
	findErr := t.results.FindOne(streamCtx, bson.M{"_id": docID}).Decode(&existing)
	if findErr == nil {
		w.deliver(existing)
	} else if findErr != mongo.ErrNoDocuments {
		t.logger.Warn().Err(findErr).Str("stock_code", stockCode).Msg("Initial result read failed")
	}

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			var event struct {
				FullDocument resultDoc `bson:"fullDocument"`
			}
			if err := stream.Decode(&event); err != nil {
				t.logger.Warn().Err(err).Str("stock_code", stockCode).Msg("Change stream decode failed")
				continue
			}
			w.deliver(event.FullDocument)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			t.logger.Warn().Err(err).Str("stock_code", stockCode).Msg("Change stream terminated")
		}
	}()

	cancel := func() {
		w.mu.Lock()
		w.cancelled = true
		w.mu.Unlock()
		stop()
	}
	return cancel, nil
}

// Close disconnects from the document store.
func (t *MongoTransport) Close(ctx context.Context) error {
	return t.client.Disconnect(ctx)
}

// mongoWatch serializes handler delivery against cancellation: once
// cancelled, no handler invocation can start, even for an event that
// was already decoded.
type mongoWatch struct {
	mu        sync.Mutex
	cancelled bool
	fn        ResultHandler
}

func (w *mongoWatch) deliver(doc resultDoc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancelled {
		return
	}
	complete := !doc.UpdatedAt.IsZero()
	w.fn(doc.Results, doc.UpdatedAt, complete)
}
