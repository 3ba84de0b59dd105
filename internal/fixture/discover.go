package fixture

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/roach88/profilecheck/internal/envelope"
	"github.com/roach88/profilecheck/internal/transport"
)

// Degradation reasons.
const (
	ReasonTransport     = "transport_error"
	ReasonStatus        = "unexpected_status"
	ReasonDecode        = "decode_error"
	ReasonSuccessFalse  = "success_false"
	ReasonIDsNotPresent = "ids_not_present"
	ReasonNoUsableIDs   = "no_usable_ids"
)

// Options configures discovery.
type Options struct {
	// ListPath is the listing endpoint, e.g. /api/test/users.
	ListPath string
	// FilterParam and FilterValue form the inclusive filter, e.g. gender=any.
	FilterParam string
	FilterValue string
	// Fallback replaces the discovered set when discovery fails.
	Fallback []int64
}

// Discover issues one listing request and builds the session's fixture set.
//
// The discovered ids are used only when the request completes with a 2xx
// status, the body decodes, the success flag is true and at least one
// positive id remains after filtering. Otherwise the fallback is
// substituted and the set records why. Discover never fails and never
// returns an empty set.
func Discover(ctx context.Context, requester transport.Requester, decoder *envelope.Decoder, opts Options, logger *zap.Logger) Set {
	if logger == nil {
		logger = zap.NewNop()
	}
	if decoder == nil {
		decoder = envelope.NewDecoder(nil)
	}

	req := transport.Request{Method: http.MethodGet, PathTemplate: opts.ListPath}
	if opts.FilterParam != "" {
		req.Query = transport.Query{opts.FilterParam: opts.FilterValue}
	}

	resp, err := requester.Do(ctx, req)
	if err != nil {
		return fallback(opts, ReasonTransport, logger, zap.Error(err))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fallback(opts, ReasonStatus, logger, zap.Int("status", resp.StatusCode))
	}

	env, err := decoder.Decode(resp.StatusCode, resp.Body)
	if err != nil {
		return fallback(opts, ReasonDecode, logger, zap.Error(err))
	}
	if !env.Success {
		return fallback(opts, ReasonSuccessFalse, logger, zap.String("success", env.SuccessPresence.String()))
	}
	if !env.IDs.Presence.Provided() {
		return fallback(opts, ReasonIDsNotPresent, logger, zap.String("ids", env.IDs.Presence.String()))
	}

	ids := positiveUnique(env.IDs.IDs)
	if len(ids) == 0 {
		return fallback(opts, ReasonNoUsableIDs, logger,
			zap.Int("received", len(env.IDs.IDs)),
			zap.Int("dropped", env.IDs.Dropped),
		)
	}

	logger.Info("fixtures discovered",
		zap.Int("count", len(ids)),
		zap.Int("filtered", len(env.IDs.IDs)-len(ids)),
		zap.String("alias", env.Alias(envelope.FieldIDs)),
	)
	return Set{ids: ids, provenance: Discovered}
}

func fallback(opts Options, reason string, logger *zap.Logger, fields ...zap.Field) Set {
	ids := positiveUnique(opts.Fallback)
	if len(ids) == 0 {
		ids = append([]int64(nil), DefaultFallback...)
	}
	logger.Warn("fixture discovery degraded, using fallback",
		append(fields, zap.String("reason", reason), zap.String("fallback", joinIDs(ids)))...,
	)
	return Set{ids: ids, provenance: Fallback, reason: reason}
}

// String renders the set for CLI output.
func (s Set) String() string {
	if s.Degraded() {
		return fmt.Sprintf("%s [%s] (%s)", s.provenance, joinIDs(s.ids), s.reason)
	}
	return fmt.Sprintf("%s [%s]", s.provenance, joinIDs(s.ids))
}
