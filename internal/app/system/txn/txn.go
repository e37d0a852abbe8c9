// internal/app/system/txn/txn.go
//
// Package txn wraps multi-collection writes in a MongoDB transaction.
//
// Run is the only entry point. Three behaviors, in order:
//
//  1. If ctx already carries a session (an outer caller started the
//     transaction, e.g. onboarding creating user + personal group), fn joins
//     that session and commit/abort belongs to the outer caller.
//  2. Otherwise a session and transaction are started here; any error from fn
//     aborts the whole unit and propagates unchanged.
//  3. If the deployment does not support transactions (standalone server),
//     fn runs without one. The unique indexes on memberships and lists keep
//     the core invariants intact even on that path.
package txn

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Run executes fn atomically against db, joining an existing transaction when
// the context carries one. Side effects that must survive only a committed
// transaction (icon generation, notifications) belong after Run returns, never
// inside fn.
func Run(ctx context.Context, db *mongo.Database, log *zap.Logger, fn func(ctx context.Context) error) error {
	if mongo.SessionFromContext(ctx) != nil {
		// Participating in the caller's transaction; the outer caller
		// owns commit and rollback.
		return fn(ctx)
	}

	client := db.Client()
	sess, err := client.StartSession()
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("transactions not supported; running without one", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	if err != nil {
		if IsNotSupported(err) {
			log.Warn("transactions not supported; running without one", zap.Error(err))
			return fn(ctx)
		}
		return err
	}
	return nil
}

// IsNotSupported reports whether err means the server cannot run
// multi-document transactions (standalone deployments, some emulations).
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}

	var ce mongo.CommandError
	if errors.As(err, &ce) {
		// 20 IllegalOperation on standalones, 51 IllegalOperation
		// variants, 263 OperationNotSupportedInTransaction.
		switch ce.Code {
		case 20, 51, 263:
			return true
		}
	}

	s := strings.ToLower(err.Error())
	if strings.Contains(s, "illegal operation") {
		return true
	}
	if strings.Contains(s, "transaction") && strings.Contains(s, "replica set") {
		return true
	}
	if strings.Contains(s, "transaction") && strings.Contains(s, "session") {
		return true
	}
	if strings.Contains(s, "session") && strings.Contains(s, "not supported") {
		return true
	}
	return false
}
