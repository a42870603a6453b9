package verification

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reservely/internal/shared/faults"
)

type fakeStore struct {
	codes     map[string]string
	cooldowns map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		codes:     make(map[string]string),
		cooldowns: make(map[string]bool),
	}
}

func (f *fakeStore) SaveCode(_ context.Context, tempID, code string, _ time.Duration) error {
	f.codes[tempID] = code
	return nil
}

func (f *fakeStore) GetCode(_ context.Context, tempID string) (string, error) {
	code, ok := f.codes[tempID]
	if !ok {
		return "", ErrCodeNotFound
	}
	return code, nil
}

func (f *fakeStore) DeleteCode(_ context.Context, tempID string) error {
	delete(f.codes, tempID)
	return nil
}

func (f *fakeStore) MarkIssued(_ context.Context, tempID string, _ time.Duration) (bool, error) {
	if f.cooldowns[tempID] {
		return false, nil
	}
	f.cooldowns[tempID] = true
	return true, nil
}

func newTestService(store Store) Service {
	return NewService(store, 10*time.Minute, time.Minute)
}

func TestIssueGeneratesFourDigitCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	code, err := svc.Issue(context.Background(), "temp-1")
	require.NoError(t, err)
	assert.Len(t, code, 4)
	assert.True(t, isValidCode(code))
	assert.Equal(t, code, store.codes["temp-1"])
}

func TestValidateConsumesCodeOnSuccess(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	code, err := svc.Issue(context.Background(), "temp-1")
	require.NoError(t, err)

	require.NoError(t, svc.Validate(context.Background(), "temp-1", code))

	// Replaying the same code must now fail.
	err = svc.Validate(context.Background(), "temp-1", code)
	require.Error(t, err)
	assert.Equal(t, faults.KindAuth, faults.KindOf(err))
}

func TestValidateRejectsWrongCode(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	code, err := svc.Issue(context.Background(), "temp-1")
	require.NoError(t, err)

	wrong := "0000"
	if code == wrong {
		wrong = "0001"
	}

	err = svc.Validate(context.Background(), "temp-1", wrong)
	require.Error(t, err)
	assert.Equal(t, faults.KindAuth, faults.KindOf(err))

	// The stored code survives a failed attempt.
	assert.Equal(t, code, store.codes["temp-1"])
}

func TestValidateRejectsMalformedCode(t *testing.T) {
	svc := newTestService(newFakeStore())

	for _, code := range []string{"", "12", "12345", "12a4", "١٢٣٤"} {
		err := svc.Validate(context.Background(), "temp-1", code)
		require.Error(t, err, "code %q", code)
		assert.Equal(t, faults.KindValidation, faults.KindOf(err), "code %q", code)
	}
}

func TestValidateRequiresReference(t *testing.T) {
	svc := newTestService(newFakeStore())

	err := svc.Validate(context.Background(), "", "1234")
	require.Error(t, err)
	assert.Equal(t, faults.KindValidation, faults.KindOf(err))
}

func TestReissueHonorsCooldown(t *testing.T) {
	store := newFakeStore()
	svc := newTestService(store)

	_, err := svc.Issue(context.Background(), "temp-1")
	require.NoError(t, err)

	// Issue set the cooldown marker, so an immediate reissue is refused.
	_, err = svc.Reissue(context.Background(), "temp-1")
	require.Error(t, err)
	assert.Equal(t, faults.KindConflict, faults.KindOf(err))

	// After the cooldown lapses a new code replaces the old one.
	store.cooldowns = make(map[string]bool)
	code, err := svc.Reissue(context.Background(), "temp-1")
	require.NoError(t, err)
	assert.Len(t, code, 4)
	assert.Equal(t, code, store.codes["temp-1"])
}
