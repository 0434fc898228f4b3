package memory

import (
	"github.com/carelens/carelens/pkg/domain/interfaces"
)

// Repository is an alias for Memory to match the pattern
type Repository = Memory

// Memory keeps every record in process memory. It is meant for tests and local runs.
type Memory struct {
	search *searchRepository
}

var _ interfaces.Repository = &Memory{}

func New() *Memory {
	return &Memory{
		search: newSearchRepository(),
	}
}

func (m *Memory) Search() interfaces.SearchRepository {
	return m.search
}

func (m *Memory) Close() error {
	return nil
}
