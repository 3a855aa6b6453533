package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"github.com/donmikel/partstore/applications/server/interfaces"
)

var errNoStorages = errors.New("no storages registered")

type storages []interfaces.Storage

type sm struct {
	urlToStorage map[string]interfaces.Storage
	storages     storages
	m            sync.Mutex
	logger       log.Logger
}

func NewStorageManager(logger log.Logger) interfaces.StorageManager {
	return &sm{
		urlToStorage: map[string]interfaces.Storage{},
		storages:     storages{},
		logger:       logger,
	}
}

// GetStorages returns count storages, the ones with most free space first.
// When count exceeds the number of storages the selection wraps around.
func (s *sm) GetStorages(ctx context.Context, count int) ([]interfaces.Storage, error) {
	if count == 0 {
		return nil, nil
	}

	s.m.Lock()
	defer s.m.Unlock()

	if len(s.storages) == 0 {
		return nil, errNoStorages
	}

	sort.Sort(sort.Reverse(s.storages))

	result := make(storages, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, s.storages[i%len(s.storages)])
	}

	level.Debug(s.logger).Log("msg", "selected storages",
		"storages", result,
	)

	return result, nil
}

func (s *sm) GetStorage(ctx context.Context, storageURL string) (interfaces.Storage, error) {
	s.m.Lock()
	defer s.m.Unlock()

	st, ok := s.urlToStorage[storageURL]
	if !ok {
		return nil, fmt.Errorf("storage with URL = %s not found", storageURL)
	}

	return st, nil
}

func (s *sm) AddStorage(ctx context.Context, storageURL string, st interfaces.Storage) error {
	s.m.Lock()
	defer s.m.Unlock()

	if _, ok := s.urlToStorage[storageURL]; ok {
		return fmt.Errorf("storage with URL = %s already registered", storageURL)
	}

	s.storages = append(s.storages, st)
	s.urlToStorage[storageURL] = st

	return nil
}

func (s storages) Len() int {
	return len(s)
}

func (s storages) Less(i, j int) bool {
	si, err := s[i].GetFreeSpace()
	if err != nil {
		return false
	}
	sj, err := s[j].GetFreeSpace()
	if err != nil {
		return false
	}

	return si < sj
}

func (s storages) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

func (s storages) String() string {
	result := make([]string, 0, len(s))
	for _, storage := range s {
		result = append(result, storage.GetStorageURL())
	}

	return strings.Join(result, ", ")
}
