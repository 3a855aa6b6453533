package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-kit/log"
	"gopkg.in/yaml.v2"

	"github.com/donmikel/partstore/applications/server/multipart"
)

const (
	defaultMaxBodySize     = 100 << 20 // 100 MiB
	defaultStorageCount    = 7
	defaultFreeSpace       = 100 << 20 // 100 MiB
	defaultChunksPerUpload = 5
	defaultMinChunkSize    = 10 << 10 // 10 KiB
)

// ByteSize is a size written as a human readable string, ex: "32 KiB".
type ByteSize uint64

func (b *ByteSize) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return fmt.Errorf("can't parse byte size %q: %w", raw, err)
	}
	*b = ByteSize(n)
	return nil
}

func (b ByteSize) String() string {
	return humanize.IBytes(uint64(b))
}

type Server struct {
	API       Api       `yaml:"api"`
	Multipart Multipart `yaml:"multipart"`
	Storage   Storage   `yaml:"storage"`
}

type Api struct {
	HTTPAddr string `yaml:"http_addr"`
}

type Multipart struct {
	SpillThreshold ByteSize `yaml:"spill_threshold"`
	MaxBodySize    ByteSize `yaml:"max_body_size"`
	TempDir        string   `yaml:"temp_dir"`
}

type Storage struct {
	Count           int      `yaml:"count"`
	FreeSpace       ByteSize `yaml:"free_space"`
	ChunksPerUpload int      `yaml:"chunks_per_upload"`
	MinChunkSize    ByteSize `yaml:"min_chunk_size"`
}

// Parse reads the YAML config at path and fills in defaults for omitted values.
func Parse(path string) (Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Server{}, fmt.Errorf("can't read config file: %w", err)
	}

	var cfg Server
	if err = yaml.UnmarshalStrict(data, &cfg); err != nil {
		return Server{}, fmt.Errorf("can't unmarshal config: %w", err)
	}
	cfg.setDefaults()

	return cfg, nil
}

func (s *Server) setDefaults() {
	if s.Multipart.SpillThreshold == 0 {
		s.Multipart.SpillThreshold = multipart.DefaultSpillThreshold
	}
	if s.Multipart.MaxBodySize == 0 {
		s.Multipart.MaxBodySize = defaultMaxBodySize
	}
	if s.Storage.Count == 0 {
		s.Storage.Count = defaultStorageCount
	}
	if s.Storage.FreeSpace == 0 {
		s.Storage.FreeSpace = defaultFreeSpace
	}
	if s.Storage.ChunksPerUpload == 0 {
		s.Storage.ChunksPerUpload = defaultChunksPerUpload
	}
	if s.Storage.MinChunkSize == 0 {
		s.Storage.MinChunkSize = defaultMinChunkSize
	}
}

func (s Server) Validate() error {
	if s.API.HTTPAddr == "" {
		return errors.New("api.http_addr is required")
	}
	if s.Storage.Count < 0 {
		return fmt.Errorf("storage.count must be positive, got %d", s.Storage.Count)
	}
	if s.Storage.ChunksPerUpload < 0 {
		return fmt.Errorf("storage.chunks_per_upload must be positive, got %d", s.Storage.ChunksPerUpload)
	}
	sizes := []struct {
		name string
		size ByteSize
	}{
		{"multipart.spill_threshold", s.Multipart.SpillThreshold},
		{"multipart.max_body_size", s.Multipart.MaxBodySize},
		{"storage.free_space", s.Storage.FreeSpace},
		{"storage.min_chunk_size", s.Storage.MinChunkSize},
	}
	for _, sz := range sizes {
		if sz.size > math.MaxInt64 {
			return fmt.Errorf("%s must not exceed %s, got %s", sz.name, ByteSize(math.MaxInt64), sz.size)
		}
	}
	if s.Multipart.TempDir != "" {
		info, err := os.Stat(s.Multipart.TempDir)
		if err != nil {
			return fmt.Errorf("multipart.temp_dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("multipart.temp_dir %s is not a directory", s.Multipart.TempDir)
		}
	}
	return nil
}

// DecoderConfig returns the multipart decoding settings.
func (m Multipart) DecoderConfig(logger log.Logger) *multipart.Config {
	cfg := multipart.DefaultConfig()
	cfg.SpillThreshold = int64(m.SpillThreshold)
	cfg.TempDir = m.TempDir
	cfg.Logger = logger
	return cfg
}
