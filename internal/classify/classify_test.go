package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCases(t *testing.T) {
	cases := []struct {
		message string
		want    Kind
	}{
		{"request timed out", Timeout},
		{"ECONNRESET", Network},
		{"429 Too Many Requests", RateLimit},
		{"401 Unauthorized", Auth},
		{"User not found", NotFound},
		{"Account locked", AccountLocked},
		{"something weird", Unknown},
	}

	for _, c := range cases {
		t.Run(c.message, func(t *testing.T) {
			assert.Equal(t, c.want, Classify(c.message))
		})
	}
}

func TestStatusMap(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{RateLimit, 429},
		{Auth, 401},
		{NotFound, 404},
		{Timeout, 502},
		{Unknown, 500},
	}

	for _, c := range cases {
		assert.Equal(t, c.want, ToExternalStatus(c.kind))
	}
}

func TestIsTransient(t *testing.T) {
	transient := []Kind{Timeout, Network, Unknown}
	for _, k := range transient {
		assert.Truef(t, IsTransient(k), "expected %s to be transient", k)
	}

	permanent := []Kind{RateLimit, Auth, NotFound, AccountLocked}
	for _, k := range permanent {
		assert.Falsef(t, IsTransient(k), "expected %s to be permanent", k)
	}
}

func TestTruncate(t *testing.T) {
	short := "short message"
	assert.Equal(t, short, Truncate(short, 300))

	long := make([]byte, 400)
	for i := range long {
		long[i] = 'x'
	}
	truncated := Truncate(string(long), 300)
	assert.Len(t, truncated, 300)
}
