package fill

import (
	"bytes"
	"context"
	"github.com/cirruslabs/mocha/internal/failure"
	"github.com/cirruslabs/mocha/internal/store"
	"io"
	"time"
)

func (orchestrator *Orchestrator) exists(ctx context.Context, reader store.Reader, key string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, orchestrator.storeTimeout)
	defer cancel()

	exists, err := reader.Exists(ctx, key)
	if err != nil {
		return false, classify(err, "check the existence of", key)
	}

	return exists, nil
}

// get bounds the time it takes for the store to start returning the object,
// but not the time it takes to read it, which for a large pass-through
// asset depends on the client.
func (orchestrator *Orchestrator) get(
	ctx context.Context,
	reader store.Reader,
	key string,
) (io.ReadCloser, store.Metadata, error) {
	ctx, cancel := context.WithCancel(ctx)

	timer := time.AfterFunc(orchestrator.storeTimeout, cancel)

	body, metadata, err := reader.Get(ctx, key)

	if !timer.Stop() && err == nil {
		_ = body.Close()

		err = context.DeadlineExceeded
	}

	if err != nil {
		cancel()

		return nil, store.Metadata{}, classify(err, "retrieve", key)
	}

	return &cancelingReadCloser{ReadCloser: body, cancel: cancel}, metadata, nil
}

// put is detached from the request context: a client that went away
// mid-request must not leave the artifact half-written.
func (orchestrator *Orchestrator) put(ctx context.Context, key string, metadata store.Metadata, blob []byte) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), orchestrator.storeTimeout)
	defer cancel()

	if err := orchestrator.cache.Put(ctx, key, metadata, bytes.NewReader(blob)); err != nil {
		return classify(err, "store", key)
	}

	return nil
}

// classify makes sure that whatever the backend returned
// ends up as either NotFound or StoreUnavailable.
func classify(err error, operation string, key string) error {
	if failure.IsNotFound(err) || failure.IsStoreUnavailable(err) {
		return err
	}

	return store.Unavailable(err, operation, key)
}

type cancelingReadCloser struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (rc *cancelingReadCloser) Close() error {
	defer rc.cancel()

	return rc.ReadCloser.Close()
}
