package signer_test

import (
	"strconv"
	"testing"
	"time"

	"github.com/novapay/gateway/signer"
	"github.com/stretchr/testify/assert"
)

func tsHeader(ts time.Time) string {
	return strconv.FormatInt(ts.UnixMilli(), 10)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	s := signer.New()
	body := []byte(`{"event":"payment.completed"}`)
	ts := time.Now()

	sig := s.Sign("s", body, ts)
	assert.NoError(t, s.Verify("s", body, sig, tsHeader(ts)))
}

func TestVerify_BitFlippedBody(t *testing.T) {
	s := signer.New()
	ts := time.Now()
	sig := s.Sign("s", []byte(`{"event":"payment.completed"}`), ts)

	err := s.Verify("s", []byte(`{"event":"payment.failed"}`), sig, tsHeader(ts))
	assert.Error(t, err)
}

func TestVerify_WrongSecret(t *testing.T) {
	s := signer.New()
	body := []byte(`{"event":"payment.completed"}`)
	ts := time.Now()
	sig := s.Sign("s", body, ts)

	err := s.Verify("wrong-secret", body, sig, tsHeader(ts))
	assert.Error(t, err)
}

func TestVerify_TamperedSignature(t *testing.T) {
	s := signer.New()
	body := []byte(`{"event":"payment.completed"}`)
	ts := time.Now()
	sig := s.Sign("s", body, ts)
	tampered := sig[:len(sig)-1] + "0"

	err := s.Verify("s", body, tampered, tsHeader(ts))
	assert.Error(t, err)
}

func TestVerify_ExpiredTimestamp(t *testing.T) {
	s := signer.New()
	body := []byte(`{"event":"payment.completed"}`)
	old := time.Now().Add(-6 * time.Minute)
	sig := s.Sign("s", body, old)

	err := s.Verify("s", body, sig, tsHeader(old))
	assert.Error(t, err)
}

func TestSign_KnownVector(t *testing.T) {
	s := signer.New()
	ts := time.UnixMilli(1705315870000)
	body := []byte(`{"event":"payment.completed"}`)

	sig := s.Sign("s", body, ts)
	assert.Equal(t, "1705315870000", tsHeader(ts))
	assert.Len(t, sig, 64) // hex-encoded SHA-256 digest, per spec.md §8's example format
	assert.Equal(t, "15d815f66cdbaf932b8f15f793adf478bec7e864fd00b93a1cb790245519596b", sig)
	assert.NoError(t, s.Verify("s", body, sig, tsHeader(ts)))
}

func TestVerify_MalformedTimestamp(t *testing.T) {
	s := signer.New()
	body := []byte(`{"event":"payment.completed"}`)
	sig := s.Sign("s", body, time.Now())

	err := s.Verify("s", body, sig, "not-a-number")
	assert.Error(t, err)
}
