package hostpool

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromNames_DuplicateHostnamesGetDistinctTempDirs(t *testing.T) {
	hosts := FromNames([]string{"worker1", "worker1", "worker2"}, false)

	require := assert.New(t)
	require.Len(hosts, 3)
	require.Equal("worker1", hosts[0].Name)
	require.Equal("worker1", hosts[1].Name)
	require.NotEqual(hosts[0].RemoteTmpDir, hosts[1].RemoteTmpDir,
		"two pairs on the same hostname must not collide on remote temp dirs")
	require.NotEqual(hosts[1].RemoteTmpDir, hosts[2].RemoteTmpDir)
}

func TestFromNames_KeepTmpPropagates(t *testing.T) {
	hosts := FromNames([]string{"h1"}, true)
	assert.True(t, hosts[0].KeepTmp)
}
