package migration

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockMigrator мокает Migrator
type MockMigrator struct {
	mock.Mock
}

func (m *MockMigrator) Up() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Down() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMigrator) Version() (uint, bool, error) {
	args := m.Called()
	return args.Get(0).(uint), args.Bool(1), args.Error(2)
}

func (m *MockMigrator) Close() (error, error) {
	args := m.Called()
	return args.Error(0), args.Error(1)
}

func engineFor(mockM *MockMigrator, gotSource *string) MigrationEngine {
	return func(source, db string) (Migrator, error) {
		if gotSource != nil {
			*gotSource = source
		}
		return mockM, nil
	}
}

func TestMigration_Up_Success(t *testing.T) {
	mockM := new(MockMigrator)

	// Настраиваем поведение
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	var source string
	mg := NewMigration("migrations", "postgres://test", engineFor(mockM, &source))
	err := mg.Up()

	assert.NoError(t, err)
	assert.Equal(t, "file://migrations", source)
	mockM.AssertExpectations(t)
}

func TestMigration_SourceURLKept(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(nil, nil)

	var source string
	mg := NewMigration("file:///srv/migrations", "postgres://test", engineFor(mockM, &source))
	require.NoError(t, mg.Up())
	assert.Equal(t, "file:///srv/migrations", source)
}

func TestMigration_Up_NoChange(t *testing.T) {
	mockM := new(MockMigrator)

	// ErrNoChange не должна считаться ошибкой в методе Up()
	mockM.On("Up").Return(migrate.ErrNoChange)
	mockM.On("Close").Return(nil, nil)

	mg := NewMigration("migrations", "", engineFor(mockM, nil))
	err := mg.Up()

	assert.NoError(t, err)
}

func TestMigration_Up_Failure(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(errors.New("syntax error"))
	mockM.On("Close").Return(nil, errors.New("conn reset"))

	mg := NewMigration("migrations", "", engineFor(mockM, nil))
	err := mg.Up()

	require.Error(t, err)
	assert.Contains(t, err.Error(), "syntax error")
	assert.Contains(t, err.Error(), "conn reset")
}

func TestMigration_Up_CloseErrorReported(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Up").Return(nil)
	mockM.On("Close").Return(errors.New("source closed"), nil)

	mg := NewMigration("migrations", "", engineFor(mockM, nil))
	assert.EqualError(t, mg.Up(), "source closed")
}

func TestMigration_Down(t *testing.T) {
	mockM := new(MockMigrator)
	mockM.On("Down").Return(nil)
	mockM.On("Close").Return(nil, nil)

	mg := NewMigration("migrations", "", engineFor(mockM, nil))
	assert.NoError(t, mg.Down())
	mockM.AssertExpectations(t)
}

func TestMigration_Version(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		mockM := new(MockMigrator)
		mockM.On("Version").Return(uint(2), false, nil)
		mockM.On("Close").Return(nil, nil)

		v, dirty, err := NewMigration("migrations", "", engineFor(mockM, nil)).Version()
		require.NoError(t, err)
		assert.Equal(t, uint(2), v)
		assert.False(t, dirty)
	})

	t.Run("fresh database", func(t *testing.T) {
		mockM := new(MockMigrator)
		mockM.On("Version").Return(uint(0), false, migrate.ErrNilVersion)
		mockM.On("Close").Return(nil, nil)

		v, _, err := NewMigration("migrations", "", engineFor(mockM, nil)).Version()
		require.NoError(t, err)
		assert.Zero(t, v)
	})
}

func TestMigration_Up_EngineError(t *testing.T) {
	// Ошибка на этапе создания мигратора (например, неверный драйвер)
	engine := func(source, db string) (Migrator, error) {
		return nil, errors.New("engine crash")
	}

	mg := NewMigration("migrations", "", engine)
	err := mg.Up()

	assert.Error(t, err)
	assert.Equal(t, "engine crash", err.Error())
}
