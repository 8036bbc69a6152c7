// Package config loads the optional ini file whose values become the defaults of the command line flags.
package config

import (
	"fmt"
	"os"

	"github.com/aarsakian/DiskTree/FS/NTFS/MFT"
	"github.com/aarsakian/DiskTree/vmdk"
	"gopkg.in/ini.v1"
)

type Config struct {
	LogEnabled     bool
	LogFile        string
	Mode           string
	Partition      int
	GrainCacheSize int
	RootScanLimit  int
	ExportLocation string
	ExportHash     string
	ExportStrategy string
	ReportFormat   string
}

func Default() *Config {
	return &Config{
		LogFile:        "logs.txt",
		Mode:           "raw",
		Partition:      0,
		GrainCacheSize: vmdk.DefaultGrainCacheSize,
		RootScanLimit:  MFT.DefaultRootScanLimit,
		ExportStrategy: "overwrite",
		ReportFormat:   "text",
	}
}

func loadFile(path string) (*ini.File, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		Insensitive:         true,
		AllowBooleanKeys:    true,
		UnparseableSections: []string{},
	}, path)

	if err != nil {
		if os.IsNotExist(err) {
			return ini.Empty(), nil
		}
		return nil, fmt.Errorf("config load error: %w", err)
	}
	return cfg, nil
}

// Load reads path, a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	conf := Default()
	if path == "" {
		return conf, nil
	}
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	return conf.apply(cfg)
}

// Parse reads the configuration from in-memory ini source.
func Parse(data []byte) (*Config, error) {
	cfg, err := ini.LoadSources(ini.LoadOptions{Insensitive: true, AllowBooleanKeys: true}, data)
	if err != nil {
		return nil, fmt.Errorf("config load error: %w", err)
	}
	return Default().apply(cfg)
}

func (conf *Config) apply(cfg *ini.File) (*Config, error) {
	section := cfg.Section("log")
	conf.LogEnabled = section.Key("enabled").MustBool(conf.LogEnabled)
	conf.LogFile = section.Key("file").MustString(conf.LogFile)

	section = cfg.Section("disk")
	conf.Mode = section.Key("mode").In(conf.Mode, []string{"raw", "mmap", "device", "physicalDrive", "vmdk"})
	conf.Partition = section.Key("partition").MustInt(conf.Partition)

	conf.GrainCacheSize = cfg.Section("vmdk").Key("grain_cache_size").MustInt(conf.GrainCacheSize)
	conf.RootScanLimit = cfg.Section("ntfs").Key("root_scan_limit").MustInt(conf.RootScanLimit)

	section = cfg.Section("export")
	conf.ExportLocation = section.Key("location").MustString(conf.ExportLocation)
	conf.ExportHash = section.Key("hash").In(conf.ExportHash, []string{"", "MD5", "SHA1", "md5", "sha1"})
	conf.ExportStrategy = section.Key("strategy").In(conf.ExportStrategy, []string{"overwrite", "Id"})

	conf.ReportFormat = cfg.Section("report").Key("format").In(conf.ReportFormat, []string{"text", "yaml"})

	if conf.GrainCacheSize <= 0 {
		return nil, fmt.Errorf("grain_cache_size must be positive, got %d", conf.GrainCacheSize)
	}
	return conf, nil
}
