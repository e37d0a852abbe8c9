package txn_test

import (
	"errors"
	"fmt"
	"testing"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evanshaw/homebasket/internal/app/system/txn"
)

func TestIsNotSupported(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"unrelated error", errors.New("connection reset by peer"), false},

		// Server error codes that mean the deployment cannot do this.
		{"illegal operation code", mongo.CommandError{Code: 20, Message: "Transaction numbers are only allowed on a replica set member or mongos"}, true},
		{"illegal operation variant", mongo.CommandError{Code: 51, Message: "cannot run command in a transaction"}, true},
		{"operation not supported in transaction", mongo.CommandError{Code: 263, Message: "operation not supported in transaction"}, true},
		{"other command error", mongo.CommandError{Code: 11000, Message: "duplicate key"}, false},
		{"wrapped command error", fmt.Errorf("run unit: %w", mongo.CommandError{Code: 20, Message: "illegal operation"}), true},

		// Message fallbacks for drivers and proxies that drop the code.
		{"illegal operation text", errors.New("(IllegalOperation) Illegal Operation attempted"), true},
		{"transactions need a replica set", errors.New("Transaction numbers are only allowed on a Replica Set member"), true},
		{"transaction refused on session", errors.New("cannot start transaction on this session"), true},
		{"sessions not supported", errors.New("this deployment does not support sessions: Not Supported"), true},

		// One keyword alone proves nothing.
		{"bare transaction mention", errors.New("transaction aborted"), false},
		{"bare session mention", errors.New("session expired"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := txn.IsNotSupported(tc.err); got != tc.want {
				t.Errorf("IsNotSupported(%v) = %v, want %v", tc.err, got, tc.want)
			}
		})
	}
}
