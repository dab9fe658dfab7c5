package auth

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/taskmaster-backend/internal/domain"
	"github.com/yungbote/taskmaster-backend/internal/platform/dbctx"
	"github.com/yungbote/taskmaster-backend/internal/platform/logger"
)

// UserTokenRepo stores login sessions. Lookups return nil, nil when no
// session matches.
type UserTokenRepo interface {
	Create(dbc dbctx.Context, tok *types.UserToken) error
	GetByID(dbc dbctx.Context, sessionID uuid.UUID) (*types.UserToken, error)
	GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error)
	// Consume deletes the session and reports whether this call removed it.
	// Two concurrent refreshes of one token cannot both succeed.
	Consume(dbc dbctx.Context, sessionID uuid.UUID) (bool, error)
	Delete(dbc dbctx.Context, sessionID uuid.UUID) error
	DeleteExpired(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error)
}

type userTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserTokenRepo(db *gorm.DB, baseLog *logger.Logger) UserTokenRepo {
	return &userTokenRepo{db: db, log: baseLog.With("repo", "UserTokenRepo")}
}

func (r *userTokenRepo) Create(dbc dbctx.Context, tok *types.UserToken) error {
	if tok == nil {
		return errors.New("nil session")
	}
	if tok.ID == uuid.Nil {
		tok.ID = uuid.New()
	}
	return dbc.DB(r.db).Create(tok).Error
}

func (r *userTokenRepo) GetByID(dbc dbctx.Context, sessionID uuid.UUID) (*types.UserToken, error) {
	if sessionID == uuid.Nil {
		return nil, nil
	}
	return r.first(dbc, "id = ?", sessionID)
}

func (r *userTokenRepo) GetByRefreshToken(dbc dbctx.Context, refreshToken string) (*types.UserToken, error) {
	if refreshToken == "" {
		return nil, nil
	}
	return r.first(dbc, "refresh_token = ?", refreshToken)
}

func (r *userTokenRepo) first(dbc dbctx.Context, query string, arg any) (*types.UserToken, error) {
	var tok types.UserToken
	err := dbc.DB(r.db).Where(query, arg).Take(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tok, nil
}

func (r *userTokenRepo) Consume(dbc dbctx.Context, sessionID uuid.UUID) (bool, error) {
	res := dbc.DB(r.db).Unscoped().Where("id = ?", sessionID).Delete(&types.UserToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *userTokenRepo) Delete(dbc dbctx.Context, sessionID uuid.UUID) error {
	return dbc.DB(r.db).Unscoped().Where("id = ?", sessionID).Delete(&types.UserToken{}).Error
}

func (r *userTokenRepo) DeleteExpired(dbc dbctx.Context, userID uuid.UUID, now time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Unscoped().
		Where("user_id = ? AND expires_at < ?", userID, now).
		Delete(&types.UserToken{})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		r.log.Debug("Pruned expired sessions", "user_id", userID, "count", res.RowsAffected)
	}
	return res.RowsAffected, nil
}
