// Package directory implements the user-directory collaborator as a
// read-only lookup seeded from a YAML file. Account management lives in
// another system; the hub only resolves identities.
package directory

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/trycode2018/chathub/internal/core"
	"github.com/trycode2018/chathub/internal/domain"
)

// Record is one seed-file row.
type Record struct {
	ID          string `mapstructure:"id" validate:"required"`
	UserName    string `mapstructure:"user_name" validate:"required,max=36"`
	DisplayName string `mapstructure:"display_name" validate:"required"`
	Avatar      string `mapstructure:"avatar"`
}

// Static is immutable after construction, so lookups need no locking.
type Static struct {
	byName map[domain.UserName]domain.Identity
	byID   map[domain.UserID]domain.Identity
}

func NewStatic(idents []domain.Identity) *Static {
	s := &Static{
		byName: make(map[domain.UserName]domain.Identity, len(idents)),
		byID:   make(map[domain.UserID]domain.Identity, len(idents)),
	}
	for _, ident := range idents {
		s.byName[ident.UserName] = ident
		s.byID[ident.ID] = ident
	}
	return s
}

// Load reads and validates the seed file.
func Load(path string) (*Static, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read users file %s: %w", path, err)
	}
	var seed struct {
		Users []Record `mapstructure:"users"`
	}
	if err := v.Unmarshal(&seed); err != nil {
		return nil, fmt.Errorf("parse users file %s: %w", path, err)
	}

	validate := validator.New()
	idents := make([]domain.Identity, 0, len(seed.Users))
	for i, rec := range seed.Users {
		if err := validate.Struct(rec); err != nil {
			return nil, fmt.Errorf("users[%d]: %w", i, err)
		}
		idents = append(idents, domain.Identity{
			ID:          domain.UserID(rec.ID),
			UserName:    domain.UserName(rec.UserName),
			DisplayName: rec.DisplayName,
			AvatarRef:   rec.Avatar,
		})
	}
	return NewStatic(idents), nil
}

func (s *Static) FindByUserName(_ context.Context, name domain.UserName) (domain.Identity, error) {
	ident, ok := s.byName[name]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: user name %q", core.ErrIdentityNotFound, name)
	}
	return ident, nil
}

func (s *Static) FindByID(_ context.Context, id domain.UserID) (domain.Identity, error) {
	ident, ok := s.byID[id]
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: id %q", core.ErrIdentityNotFound, id)
	}
	return ident, nil
}
