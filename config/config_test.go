package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	"github.com/aarsakian/DiskTree/vmdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	conf, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)
	assert.Equal(t, "raw", conf.Mode)
	assert.Equal(t, vmdk.DefaultGrainCacheSize, conf.GrainCacheSize)
	assert.Equal(t, MFT.DefaultRootScanLimit, conf.RootScanLimit)
	assert.False(t, conf.LogEnabled)
}

func TestParse(t *testing.T) {
	conf, err := Parse([]byte(`
[log]
enabled
file = disktree.log

[Disk]
Mode = vmdk
partition = 2

[vmdk]
grain_cache_size = 8

[ntfs]
root_scan_limit = 32

[export]
location = /tmp/out
hash = SHA1
strategy = Id

[report]
format = yaml
`))
	require.NoError(t, err)
	assert.Equal(t, &Config{
		LogEnabled:     true,
		LogFile:        "disktree.log",
		Mode:           "vmdk",
		Partition:      2,
		GrainCacheSize: 8,
		RootScanLimit:  32,
		ExportLocation: "/tmp/out",
		ExportHash:     "SHA1",
		ExportStrategy: "Id",
		ReportFormat:   "yaml",
	}, conf)
}

func TestParseFallsBackOnUnknownValues(t *testing.T) {
	conf, err := Parse([]byte("[disk]\nmode = floppy\npartition = first\n[report]\nformat = xml\n"))
	require.NoError(t, err)
	assert.Equal(t, "raw", conf.Mode)
	assert.Equal(t, 0, conf.Partition)
	assert.Equal(t, "text", conf.ReportFormat)
}

func TestParseRejectsGrainCacheSize(t *testing.T) {
	_, err := Parse([]byte("[vmdk]\ngrain_cache_size = 0\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("[vmdk]\ngrain_cache_size = -3\n"))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	conf, err := Load(filepath.Join(dir, "missing.ini"))
	require.NoError(t, err)
	assert.Equal(t, Default(), conf)

	path := filepath.Join(dir, "disktree.ini")
	require.NoError(t, os.WriteFile(path, []byte("[ntfs]\nroot_scan_limit = 6\n"), 0644))
	conf, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, 6, conf.RootScanLimit)
	assert.Equal(t, "raw", conf.Mode)
}
