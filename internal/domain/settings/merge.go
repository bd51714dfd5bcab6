package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Strategy - стратегия слияния поля.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyOr     Strategy = "or"
	StrategyRemote Strategy = "remote"
)

// Field описывает одно поле настроек.
type Field struct {
	Name     string
	Strategy Strategy
	index    int
}

// Secret сообщает, что поле не покидает устройство в открытом виде.
func (f Field) Secret() bool {
	return f.Strategy == StrategyLocal
}

var fields = describe()

func describe() []Field {
	t := reflect.TypeOf(Settings{})
	var out []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		strategy, ok := sf.Tag.Lookup("merge")
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
		switch Strategy(strategy) {
		case StrategyLocal, StrategyOr, StrategyRemote:
		default:
			panic(fmt.Sprintf("settings: field %s has unknown merge strategy %q", sf.Name, strategy))
		}
		if Strategy(strategy) == StrategyOr && sf.Type.Kind() != reflect.Bool {
			panic(fmt.Sprintf("settings: field %s must be bool to use the or strategy", sf.Name))
		}
		out = append(out, Field{Name: name, Strategy: Strategy(strategy), index: i})
	}
	return out
}

// Fields возвращает описание всех полей в порядке объявления.
func Fields() []Field {
	out := make([]Field, len(fields))
	copy(out, fields)
	return out
}

// Merge сливает локальные и удалённые настройки по стратегиям полей.
// Отсутствующая сторона считается пустой.
func Merge(local, remote *Settings) *Settings {
	if local == nil && remote == nil {
		return nil
	}
	if local == nil {
		local = &Settings{Owner: remote.Owner}
	}
	if remote == nil {
		remote = &Settings{}
	}

	merged := local.Clone()
	lv := reflect.ValueOf(local).Elem()
	rv := reflect.ValueOf(remote).Elem()
	mv := reflect.ValueOf(merged).Elem()

	for _, f := range fields {
		l, r := lv.Field(f.index), rv.Field(f.index)
		switch f.Strategy {
		case StrategyLocal:
			if l.IsZero() {
				mv.Field(f.index).Set(r)
			} else {
				mv.Field(f.index).Set(l)
			}
		case StrategyOr:
			mv.Field(f.index).SetBool(l.Bool() || r.Bool())
		case StrategyRemote:
			if !r.IsZero() {
				mv.Field(f.index).Set(r)
			} else {
				mv.Field(f.index).Set(l)
			}
		}
	}
	return merged
}

// Set присваивает полю значение из строкового представления.
func (s *Settings) Set(name, value string) error {
	f, ok := lookup(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownField, name)
	}
	v := reflect.ValueOf(s).Elem().Field(f.index)
	switch v.Kind() {
	case reflect.String:
		v.SetString(value)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
		v.SetBool(b)
	case reflect.Float64:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidValue, name, err)
		}
		v.SetFloat(n)
	default:
		return fmt.Errorf("%w: %s has unsupported type %s", ErrInvalidValue, name, v.Kind())
	}
	return nil
}

// Values возвращает строковые значения всех полей. Секреты маскируются.
func (s *Settings) Values() map[string]string {
	v := reflect.ValueOf(s).Elem()
	out := make(map[string]string, len(fields))
	for _, f := range fields {
		fv := v.Field(f.index)
		switch {
		case f.Secret():
			out[f.Name] = mask(fv.String())
		case fv.Kind() == reflect.Float64:
			out[f.Name] = strconv.FormatFloat(fv.Float(), 'f', -1, 64)
		default:
			out[f.Name] = fmt.Sprint(fv.Interface())
		}
	}
	return out
}

// Names возвращает имена полей в алфавитном порядке.
func Names() []string {
	names := make([]string, 0, len(fields))
	for _, f := range fields {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// IsSecret сообщает, является ли поле секретным.
func IsSecret(name string) bool {
	f, ok := lookup(name)
	return ok && f.Secret()
}

// Encode строит удалённый документ. Секреты запечатываются sealer, а без
// него передаются пустыми.
func Encode(s *Settings, sealer Sealer) (Document, error) {
	wire := s.Clone()
	v := reflect.ValueOf(wire).Elem()
	for _, f := range fields {
		if !f.Secret() {
			continue
		}
		fv := v.Field(f.index)
		if sealer == nil || fv.String() == "" {
			fv.SetString("")
			continue
		}
		sealed, err := sealer.Seal(fv.String())
		if err != nil {
			return Document{}, fmt.Errorf("failed to seal %s: %w", f.Name, err)
		}
		fv.SetString(sealed)
	}

	raw, err := json.Marshal(wire)
	if err != nil {
		return Document{}, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return Document{Owner: s.Owner, Fields: raw, UpdatedAt: s.UpdatedAt}, nil
}

// Decode разбирает удалённый документ. Секрет, который не удалось открыть,
// считается пустым; имена таких полей возвращаются во втором значении.
func Decode(doc Document, sealer Sealer) (*Settings, []string, error) {
	var s Settings
	if len(doc.Fields) > 0 {
		if err := json.Unmarshal(doc.Fields, &s); err != nil {
			return nil, nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		}
	}
	s.Owner = doc.Owner
	s.UpdatedAt = doc.UpdatedAt

	var unreadable []string
	v := reflect.ValueOf(&s).Elem()
	for _, f := range fields {
		if !f.Secret() {
			continue
		}
		fv := v.Field(f.index)
		if fv.String() == "" {
			continue
		}
		if sealer == nil {
			fv.SetString("")
			unreadable = append(unreadable, f.Name)
			continue
		}
		plain, err := sealer.Open(fv.String())
		if err != nil {
			fv.SetString("")
			unreadable = append(unreadable, f.Name)
			continue
		}
		fv.SetString(plain)
	}
	return &s, unreadable, nil
}

func lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return "****"
	}
	return "****" + secret[len(secret)-4:]
}
