package migration

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Blank import required for PostgreSQL driver registration for migrations
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Migrator описывает используемую часть migrate.Migrate
type Migrator interface {
	Up() error
	Down() error
	Version() (uint, bool, error)
	Close() (error, error)
}

// MigrationEngine создаёт Migrator по источнику и строке подключения.
type MigrationEngine func(sourceURL, databaseURL string) (Migrator, error)

type Migration struct {
	source      string
	databaseURI string
	engine      MigrationEngine
}

// NewMigration принимает путь к каталогу миграций или URL источника.
func NewMigration(path, databaseURI string, engine MigrationEngine) *Migration {
	source := path
	if !strings.Contains(source, "://") {
		source = "file://" + source
	}
	if engine == nil {
		engine = DefaultEngine
	}
	return &Migration{
		source:      source,
		databaseURI: databaseURI,
		engine:      engine,
	}
}

// DefaultEngine открывает настоящий migrate.Migrate.
func DefaultEngine(sourceURL, databaseURL string) (Migrator, error) {
	return migrate.New(sourceURL, databaseURL)
}

// Up применяет все новые миграции. Отсутствие изменений ошибкой не считается.
func (mg *Migration) Up() error {
	return mg.run(func(m Migrator) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration up: %w", err)
		}
		return nil
	})
}

// Down откатывает все миграции.
func (mg *Migration) Down() error {
	return mg.run(func(m Migrator) error {
		if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration down: %w", err)
		}
		return nil
	})
}

// Version возвращает текущую версию схемы; 0 - миграции не применялись.
func (mg *Migration) Version() (version uint, dirty bool, err error) {
	err = mg.run(func(m Migrator) error {
		var verr error
		version, dirty, verr = m.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		return verr
	})
	return version, dirty, err
}

func (mg *Migration) run(fn func(Migrator) error) (err error) {
	m, err := mg.engine(mg.source, mg.databaseURI)
	if err != nil {
		return err
	}
	defer func() {
		serr, dberr := m.Close()
		if serr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration source error: %v", err, serr)
			} else {
				err = serr
			}
		}
		if dberr != nil {
			if err != nil {
				err = fmt.Errorf("%w; migration database error: %v", err, dberr)
			} else {
				err = dberr
			}
		}
	}()
	return fn(m)
}
