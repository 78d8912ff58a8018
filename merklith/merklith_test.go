// Copyright (c) 2025 The Merklith developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package merklith

import (
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	require.NoError(t, err)
	assert.Equal(t, "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", addr.String())

	// without prefix
	_, err = ParseAddress("7567d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.NoError(t, err)

	_, err = ParseAddress("0x7567")
	assert.Error(t, err)
	_, err = ParseAddress("zz67d83b7b8d80addcb281a71d54fc7b3364ffed")
	assert.Error(t, err)

	assert.True(t, Address{}.IsZero())
	assert.False(t, addr.IsZero())
}

func TestAddressJSON(t *testing.T) {
	addr := MustParseAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed")

	data, err := json.Marshal(&addr)
	require.NoError(t, err)
	assert.Equal(t, `"0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"`, string(data))

	var parsed Address
	require.NoError(t, json.Unmarshal(data, &parsed))
	assert.Equal(t, addr, parsed)
}

func TestPubkeyToAddress(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	addr := PubkeyToAddress(&key.PublicKey)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey).Bytes(), addr.Bytes())
}

func TestBytes32(t *testing.T) {
	b := Blake2b([]byte("merklith"))
	assert.False(t, b.IsZero())
	assert.Len(t, b.String(), 2+64)
	assert.Equal(t, b.String()[:10]+"…"+b.String()[58:], b.AbbrevString())

	parsed, err := ParseBytes32(b.String())
	require.NoError(t, err)
	assert.Equal(t, b, parsed)

	data, err := json.Marshal(&b)
	require.NoError(t, err)
	var back Bytes32
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, b, back)
}

func TestBlake2b(t *testing.T) {
	direct := Blake2b([]byte("hello"), []byte("world"))
	viaFn := Blake2bFn(func(w io.Writer) {
		w.Write([]byte("hello"))
		w.Write([]byte("world"))
	})
	assert.Equal(t, direct, viaFn)
	assert.NotEqual(t, direct, Blake2b([]byte("helloworld!")))
}

func TestKeccak256(t *testing.T) {
	h := Keccak256([]byte("merklith"))
	assert.Equal(t, h, Keccak256([]byte("merklith")))
	assert.NotEqual(t, h, Keccak256([]byte("other")))
	assert.NotEqual(t, h, Blake2b([]byte("merklith")))
}

func TestConfigDefaults(t *testing.T) {
	ResetConfigForTest()
	defer ResetConfigForTest()

	assert.Equal(t, uint64(6), BlockInterval())
	assert.Equal(t, uint64(1000), EpochLength())
	assert.Equal(t, uint64(1000), DecayInterval())
	num, denom := FinalityThreshold()
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(3), denom)
	assert.Equal(t, uint64(4), MinValidatorCount())
	assert.Equal(t, uint64(50), MaxMissedBlocks())
	assert.Equal(t, uint64(10), MinContributionScore())
	assert.Equal(t, 128, ProposalWindow())
	assert.Equal(t, uint64(604800), UnbondingPeriod())
}

func TestConfigOverride(t *testing.T) {
	ResetConfigForTest()
	defer ResetConfigForTest()

	SetConfig(Config{
		BlockInterval:       10,
		FinalityNumerator:   3,
		FinalityDenominator: 4,
	})

	assert.Equal(t, uint64(10), BlockInterval())
	num, denom := FinalityThreshold()
	assert.Equal(t, uint64(3), num)
	assert.Equal(t, uint64(4), denom)
	// untouched parameters keep their defaults
	assert.Equal(t, uint64(1000), EpochLength())
}

func TestConfigLocked(t *testing.T) {
	ResetConfigForTest()
	defer ResetConfigForTest()

	LockConfig()
	assert.Panics(t, func() { SetConfig(Config{BlockInterval: 3}) })
}

func TestConfigConcurrentReads(t *testing.T) {
	ResetConfigForTest()
	defer ResetConfigForTest()
	LockConfig()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				num, denom := FinalityThreshold()
				assert.Equal(t, uint64(2), num)
				assert.Equal(t, uint64(3), denom)
				assert.Equal(t, uint64(1000), DecayInterval())
				assert.Equal(t, uint64(604800), UnbondingPeriod())
			}
		}()
	}
	wg.Wait()
}
