package registry

import (
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayflow/relayflow/internal/runtime/types"
)

func resourceID(tb testing.TB, n byte) types.ResourceID {
	tb.Helper()
	var id types.ResourceID
	id[31] = n
	return id
}

func address(tb testing.TB, n byte) types.Address {
	tb.Helper()
	var addr types.Address
	addr[19] = n
	return addr
}

// checkBijective verifies every forward mapping has a matching reverse
// mapping and vice versa.
func checkBijective(t *testing.T, r *Registry) {
	t.Helper()
	for _, entry := range r.Entries() {
		assert.Equal(t, entry.ContractAddress, r.ResolveAddress(entry.ResourceID))
		assert.Equal(t, entry.ResourceID, r.ResolveResource(entry.ContractAddress))
	}
}

func TestSetResourceInstallsBothDirections(t *testing.T) {
	r := New()
	res, addr := resourceID(t, 1), address(t, 1)

	r.SetResource(res, addr, nil)

	assert.Equal(t, addr, r.ResolveAddress(res))
	assert.Equal(t, res, r.ResolveResource(addr))
	assert.Equal(t, 1, r.Len())
	checkBijective(t, r)
}

func TestResolveUnmappedReturnsZeroSentinel(t *testing.T) {
	r := New()

	assert.True(t, r.ResolveAddress(resourceID(t, 9)).IsZero())
	assert.True(t, r.ResolveResource(address(t, 9)).IsZero())
}

func TestSetResourceIdempotent(t *testing.T) {
	r := New()
	res, addr := resourceID(t, 1), address(t, 1)

	r.SetResource(res, addr, nil)
	r.SetResource(res, addr, nil)

	assert.Equal(t, 1, r.Len())
	assert.Equal(t, addr, r.ResolveAddress(res))
	checkBijective(t, r)
}

func TestReassignResourceToNewAddress(t *testing.T) {
	r := New()
	res := resourceID(t, 1)
	oldAddr, newAddr := address(t, 1), address(t, 2)

	r.SetResource(res, oldAddr, nil)
	r.SetResource(res, newAddr, nil)

	assert.Equal(t, newAddr, r.ResolveAddress(res))
	assert.True(t, r.ResolveResource(oldAddr).IsZero(), "stale reverse link must be removed")
	assert.Equal(t, 1, r.Len())
	checkBijective(t, r)
}

func TestReassignAddressToNewResource(t *testing.T) {
	r := New()
	res1, res2 := resourceID(t, 1), resourceID(t, 2)
	addr := address(t, 1)

	r.SetResource(res1, addr, nil)
	r.SetResource(res2, addr, nil)

	assert.Equal(t, res2, r.ResolveResource(addr))
	assert.True(t, r.ResolveAddress(res1).IsZero(), "stale forward link must be removed")
	assert.Equal(t, 1, r.Len())
	checkBijective(t, r)
}

func TestBijectivityUnderMutationSequences(t *testing.T) {
	r := New()

	// Walk a deterministic sequence of overlapping assignments; after every
	// step the two indices must agree with no orphans.
	for i := 0; i < 64; i++ {
		res := resourceID(t, byte(i%8))
		addr := address(t, byte((i*3)%8))
		r.SetResource(res, addr, nil)

		entries := r.Entries()
		seenAddr := make(map[types.Address]bool, len(entries))
		for _, e := range entries {
			require.False(t, seenAddr[e.ContractAddress], "address bound to two resources")
			seenAddr[e.ContractAddress] = true
		}
		checkBijective(t, r)
	}
}

func TestAuxiliaryArgsIgnored(t *testing.T) {
	r := New()
	res, addr := resourceID(t, 1), address(t, 1)

	r.SetResource(res, addr, []byte("opaque admin config"))

	assert.Equal(t, addr, r.ResolveAddress(res))
}

func TestWithMetricsTracksTableSize(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithMetrics(reg))

	r.SetResource(resourceID(t, 1), address(t, 1), nil)
	r.SetResource(resourceID(t, 2), address(t, 2), nil)
	// Stealing address 1 for resource 3 evicts resource 1, so the table
	// still holds 2 routes.
	r.SetResource(resourceID(t, 3), address(t, 1), nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "relayflow_registry_routes", families[0].GetName())
	assert.Equal(t, float64(2), families[0].GetMetric()[0].GetGauge().GetValue())
}

func TestConcurrentReadsDuringWrites(t *testing.T) {
	r := New()
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.SetResource(resourceID(t, byte(n)), address(t, byte(n)), nil)
			}
		}(i)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = r.ResolveAddress(resourceID(t, byte(n)))
				_ = r.Len()
			}
		}(i)
	}
	wg.Wait()

	checkBijective(t, r)
}

func TestEntriesSnapshot(t *testing.T) {
	r := New()
	for i := byte(1); i <= 4; i++ {
		r.SetResource(resourceID(t, i), address(t, i), nil)
	}

	entries := r.Entries()
	require.Len(t, entries, 4)

	// Mutating the registry after the snapshot must not affect it.
	r.SetResource(resourceID(t, 9), address(t, 9), nil)
	assert.Len(t, entries, 4)
}

func ExampleRegistry_SetResource() {
	r := New()
	var res types.ResourceID
	res[31] = 0x01
	addr, _ := types.AddressFromHex("0x1122334455667788990011223344556677889900")

	r.SetResource(res, addr, nil)
	fmt.Println(r.ResolveAddress(res))
	// Output: 0x1122334455667788990011223344556677889900
}
