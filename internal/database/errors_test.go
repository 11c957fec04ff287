package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"nil", nil, ErrorClassPermanent},
		{"serialization failure", &pq.Error{Code: "40001"}, ErrorClassSerialization},
		{"deadlock", &pq.Error{Code: "40P01"}, ErrorClassDeadlock},
		{"lock timeout", &pq.Error{Code: "55P03"}, ErrorClassTransient},
		{"unique violation", &pq.Error{Code: "23505"}, ErrorClassPermanent},
		{"foreign key violation", &pq.Error{Code: "23503"}, ErrorClassPermanent},
		{"check violation", &pq.Error{Code: "23514"}, ErrorClassPermanent},
		{"plain error", errors.New("boom"), ErrorClassPermanent},
		{"wrapped serialization", fmt.Errorf("run tx: %w", &pq.Error{Code: "40001"}), ErrorClassSerialization},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.class, ClassifyError(tc.err))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(&pq.Error{Code: "40001"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "40P01"}))
	assert.True(t, IsRetryable(&pq.Error{Code: "55P03"}))

	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(ErrInsufficientStock))
	assert.False(t, IsRetryable(&pq.Error{Code: "23505"}))
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pq.Error{Code: "23505", Constraint: "reviews_sweet_id_user_id_key"}

	assert.True(t, IsUniqueViolation(err, ""))
	assert.True(t, IsUniqueViolation(err, "reviews_sweet_id_user_id_key"))
	assert.False(t, IsUniqueViolation(err, "orders_order_number_key"))
	assert.False(t, IsUniqueViolation(errors.New("boom"), ""))
	assert.False(t, IsUniqueViolation(&pq.Error{Code: "23503"}, ""))
}
