package flashtlv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAppendQueryReadVerify_RoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t)

	ok, err := eng.Append(0x1122, []byte("hello flash"))
	require.NoError(t, err)
	require.True(t, ok)

	block, found, err := eng.Query(0x1122)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, len("hello flash"), block.Length)

	data, err := eng.Read(block, 0, block.Length)
	require.NoError(t, err)
	require.Equal(t, "hello flash", string(data))

	verified, err := eng.Verify(block)
	require.NoError(t, err)
	require.True(t, verified)
}

func TestQuery_NotFound(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, found, err := eng.Query(0xBEEF)
	require.NoError(t, err)
	require.False(t, found)
}

func TestAppend_ReplaceTombstonesOldTwin(t *testing.T) {
	eng, _ := newTestEngine(t)

	ok, err := eng.Append(0x1122, []byte("first"))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = eng.Append(0x1122, []byte("second"))
	require.NoError(t, err)
	require.True(t, ok)

	block, found, err := eng.Query(0x1122)
	require.NoError(t, err)
	require.True(t, found)

	data, err := eng.Read(block, 0, block.Length)
	require.NoError(t, err)
	require.Equal(t, "second", string(data))

	tags, err := eng.ScanLiveTagsForTesting()
	require.NoError(t, err)

	count := 0
	for _, tag := range tags {
		if tag == 0x1122 {
			count++
		}
	}
	require.Equal(t, 1, count, "at most one VERIFY block per tag")
}

func TestDelete_RemovesTagAndIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Append(0xCC69, []byte{0x11, 0x22, 0x33, 0x44})
	require.NoError(t, err)

	deleted, err := eng.Delete(0xCC69)
	require.NoError(t, err)
	require.True(t, deleted)

	_, found, err := eng.Query(0xCC69)
	require.NoError(t, err)
	require.False(t, found)

	deletedAgain, err := eng.Delete(0xCC69)
	require.NoError(t, err)
	require.False(t, deletedAgain)
}

func TestRead_OutOfRangeReturnsZeroBytes(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Append(0x0001, []byte("abcdef"))
	require.NoError(t, err)

	block, found, err := eng.Query(0x0001)
	require.NoError(t, err)
	require.True(t, found)

	data, err := eng.Read(block, 3, 10)
	require.NoError(t, err)
	require.Nil(t, data)

	data, err = eng.Read(block, block.Length, 0)
	require.NoError(t, err)
	require.Nil(t, data)
}

func TestVerify_DetectsCorruption(t *testing.T) {
	eng, sim := newTestEngine(t)

	_, err := eng.Append(0x2233, []byte("payload"))
	require.NoError(t, err)

	block, found, err := eng.Query(0x2233)
	require.NoError(t, err)
	require.True(t, found)

	ok, err := eng.Verify(block)
	require.NoError(t, err)
	require.True(t, ok)

	// Mutate one data byte directly on the simulated medium, outside the
	// engine's knowledge (spec §8 property 7).
	corrupt := make([]byte, 1)
	require.NoError(t, sim.Read(block.DataOffset, corrupt))
	corrupt[0] ^= 0xFF
	require.NoError(t, sim.Program(block.DataOffset, corrupt))

	ok, err = eng.Verify(block)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAppend_RejectsPayloadThatCannotFitSector(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Append(0x0001, make([]byte, testSectorSize))
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestAppend_EmptyPayloadRoundTrips(t *testing.T) {
	eng, _ := newTestEngine(t)

	ok, err := eng.Append(0xABCD, nil)
	require.NoError(t, err)
	require.True(t, ok)

	block, found, err := eng.Query(0xABCD)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 0, block.Length)

	ok, err = eng.Verify(block)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestQuery_CacheHitAndInvalidationOnDelete(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Append(0x5050, []byte("cached"))
	require.NoError(t, err)

	_, found, err := eng.Query(0x5050)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, 1, eng.CacheLenForTesting())

	_, err = eng.Delete(0x5050)
	require.NoError(t, err)

	_, found, err = eng.Query(0x5050)
	require.NoError(t, err)
	require.False(t, found)
}
