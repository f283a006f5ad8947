package storagemock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hte-labs/hte-planner/internal/model"
	"github.com/hte-labs/hte-planner/internal/storage"
)

var _ storage.Repository = &MockRepository{}

// MockRepository is a mock implementation of storage.Repository.
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateUser(ctx context.Context, u model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockRepository) GetUser(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockRepository) UpdateUser(ctx context.Context, u model.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *MockRepository) DeleteUser(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateGoal(ctx context.Context, g model.Goal) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockRepository) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*model.Goal), args.Error(1)
}

func (m *MockRepository) ListGoalsByUser(ctx context.Context, userID string) ([]model.Goal, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]model.Goal), args.Error(1)
}

func (m *MockRepository) UpdateGoal(ctx context.Context, g model.Goal) error {
	return m.Called(ctx, g).Error(0)
}

func (m *MockRepository) DeleteGoal(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockRepository) CreateTask(ctx context.Context, t model.StoredTask) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) GetTask(ctx context.Context, goalID, taskID string) (*model.StoredTask, error) {
	args := m.Called(ctx, goalID, taskID)
	return args.Get(0).(*model.StoredTask), args.Error(1)
}

func (m *MockRepository) ListTasksByGoal(ctx context.Context, goalID string) ([]model.StoredTask, error) {
	args := m.Called(ctx, goalID)
	return args.Get(0).([]model.StoredTask), args.Error(1)
}

func (m *MockRepository) UpdateTask(ctx context.Context, t model.StoredTask) error {
	return m.Called(ctx, t).Error(0)
}

func (m *MockRepository) DeleteTask(ctx context.Context, goalID, taskID string) error {
	return m.Called(ctx, goalID, taskID).Error(0)
}

func (m *MockRepository) SavePlan(ctx context.Context, p model.Plan) error {
	return m.Called(ctx, p).Error(0)
}

func (m *MockRepository) GetPlan(ctx context.Context, goalID string) (*model.Plan, error) {
	args := m.Called(ctx, goalID)
	return args.Get(0).(*model.Plan), args.Error(1)
}
