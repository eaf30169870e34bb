package taskregistry_test

import (
	"context"
	"testing"

	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/domain/task"
	"github.com/vibevesselio-create/vibevessel-marketing-system-sub005/internal/port/taskregistry"
)

type testProvider struct {
	name string
}

func (p *testProvider) Name() string { return p.name }
func (p *testProvider) Capabilities() taskregistry.Capabilities {
	return taskregistry.Capabilities{QueryTasks: true}
}
func (p *testProvider) QueryTasks(_ context.Context, _ taskregistry.Query) ([]task.Task, error) {
	return nil, nil
}
func (p *testProvider) UpdateStatus(_ context.Context, _, _ string) error { return nil }
func (p *testProvider) CreateTask(_ context.Context, _ *task.Task) (*task.Task, error) {
	return nil, taskregistry.ErrNotSupported
}

func TestRegisterAndNew(t *testing.T) {
	taskregistry.Register("test-registry", func(_ map[string]string) (taskregistry.Provider, error) {
		return &testProvider{name: "test-registry"}, nil
	})

	p, err := taskregistry.New("test-registry", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "test-registry" {
		t.Fatalf("expected test-registry, got %s", p.Name())
	}
}

func TestNewUnknownProvider(t *testing.T) {
	_, err := taskregistry.New("nonexistent", nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestAvailable(t *testing.T) {
	names := taskregistry.Available()
	found := false
	for _, n := range names {
		if n == "test-registry" {
			found = true
		}
	}
	if !found {
		t.Fatal("expected test-registry in available providers")
	}
}
