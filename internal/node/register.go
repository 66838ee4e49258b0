package node

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/dreamware/primesplit/internal/cluster"
)

// Register announces self to the coordinator at coordAddr, retrying with
// exponential backoff until it succeeds, ctx is done or maxElapsed passes.
// A 4xx answer is permanent and not retried.
func Register(ctx context.Context, coordAddr string, self cluster.NodeInfo, maxElapsed time.Duration, log zerolog.Logger) error {
	url := strings.TrimRight(coordAddr, "/") + "/register"
	body := cluster.RegisterRequest{Node: self}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxElapsed

	op := func() error {
		err := cluster.PostJSON(ctx, url, body, nil)
		var se *cluster.StatusError
		if errors.As(err, &se) && se.Code >= http.StatusBadRequest && se.Code < http.StatusInternalServerError {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, wait time.Duration) {
		log.Warn().Err(err).Dur("retry_in", wait).Msg("register failed")
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(b, ctx), notify); err != nil {
		return errors.Wrapf(err, "register with coordinator %s", coordAddr)
	}
	log.Info().Str("coordinator", coordAddr).Msg("registered with coordinator")
	return nil
}
