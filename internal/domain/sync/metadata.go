package sync

import (
	"context"
	"fmt"
	"time"

	"replikeep/internal/domain/record"
)

// Direction - направление синхронизации, у каждого свой водяной знак.
type Direction string

const (
	DirectionPush Direction = "push"
	DirectionPull Direction = "pull"
)

// WatermarkKey строит ключ водяного знака в хранилище метаданных.
func WatermarkKey(owner string, kind record.Kind, dir Direction) string {
	return fmt.Sprintf("%s%s/%s", OwnerPrefix(owner), kind, dir)
}

// OwnerPrefix - общий префикс ключей водяных знаков владельца.
func OwnerPrefix(owner string) string {
	return owner + "/"
}

// Watermark - значение водяного знака для отображения.
type Watermark struct {
	Kind      record.Kind
	Direction Direction
	At        *time.Time
}

// Watermarks возвращает водяные знаки владельца по всем типам.
func (s *Service) Watermarks(ctx context.Context, owner string) ([]Watermark, error) {
	var out []Watermark
	for _, repo := range s.repos {
		kind := repo.Spec().Kind
		for _, dir := range []Direction{DirectionPush, DirectionPull} {
			at, err := s.meta.Get(ctx, WatermarkKey(owner, kind, dir))
			if err != nil {
				return nil, localErr("read watermark", err)
			}
			out = append(out, Watermark{Kind: kind, Direction: dir, At: at})
		}
	}
	return out, nil
}

func (s *Service) advance(ctx context.Context, keys []string, to time.Time) error {
	for _, key := range keys {
		if err := s.meta.Set(ctx, key, to); err != nil {
			return localErr("advance watermark "+key, err)
		}
	}
	return nil
}
