package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/99minutos/identity-service/internal/core/domain"
)

const (
	createStatusCreated       int64 = 0
	createStatusEmailTaken    int64 = 1
	createStatusUsernameTaken int64 = 2
)

// KEYS: email index, username index, user hash, username set.
// ARGV: id, email, username, password hash, timestamp.
const createUserScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 1
end
if redis.call("EXISTS", KEYS[2]) == 1 then
  return 2
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[1])
redis.call("HSET", KEYS[3],
  "id", ARGV[1],
  "email", ARGV[2],
  "username", ARGV[3],
  "password_hash", ARGV[4],
  "created_at", ARGV[5],
  "updated_at", ARGV[5])
redis.call("ZADD", KEYS[4], 0, ARGV[3])
return 0
`

var createUserLua = redis.NewScript(createUserScript)

const defaultPrefix = "identity"

// UserRepository keeps each user in a hash with string keys indexing email
// and username to the id. A zero-score sorted set of usernames gives a
// byte-ordered listing.
type UserRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*UserRepository)

// WithPrefix namespaces every key the repository touches.
func WithPrefix(prefix string) Option {
	return func(r *UserRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewUserRepository(client redis.UniversalClient, opts ...Option) *UserRepository {
	r := &UserRepository{client: client, prefix: defaultPrefix, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *UserRepository) Create(ctx context.Context, email, username, passwordHash string) (*domain.User, error) {
	now := r.now().UTC()
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	status, err := createUserLua.Run(
		ctx,
		r.client,
		[]string{r.emailKey(email), r.usernameKey(username), r.userKey(user.ID), r.listKey()},
		user.ID,
		user.Email,
		user.Username,
		user.PasswordHash,
		now.Format(time.RFC3339Nano),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	switch status {
	case createStatusCreated:
		return user, nil
	case createStatusEmailTaken:
		return nil, &domain.DuplicateIdentityError{Field: domain.FieldEmail}
	case createStatusUsernameTaken:
		return nil, &domain.DuplicateIdentityError{Field: domain.FieldUsername}
	default:
		return nil, fmt.Errorf("create user: unexpected script status %d", status)
	}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	id, err := r.client.Get(ctx, r.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return r.FindByID(ctx, id)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	fields, err := r.client.HGetAll(ctx, r.userKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return decodeUser(fields)
}

func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	usernames, err := r.client.ZRange(ctx, r.listKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list usernames: %w", err)
	}
	if len(usernames) == 0 {
		return nil, nil
	}

	keys := make([]string, len(usernames))
	for i, name := range usernames {
		keys[i] = r.usernameKey(name)
	}
	ids, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("resolve user ids: %w", err)
	}

	pipe := r.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))
	for _, raw := range ids {
		id, ok := raw.(string)
		if !ok {
			continue
		}
		cmds = append(cmds, pipe.HGetAll(ctx, r.userKey(id)))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	users := make([]*domain.User, 0, len(cmds))
	for _, cmd := range cmds {
		u, err := decodeUser(cmd.Val())
		if errors.Is(err, domain.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeUser(fields map[string]string) (*domain.User, error) {
	if len(fields) == 0 {
		return nil, domain.ErrUserNotFound
	}
	created, err := time.Parse(time.RFC3339Nano, fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("decode created_at: %w", err)
	}
	updated, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, fmt.Errorf("decode updated_at: %w", err)
	}
	return &domain.User{
		ID:           fields["id"],
		Email:        fields["email"],
		Username:     fields["username"],
		PasswordHash: fields["password_hash"],
		CreatedAt:    created,
		UpdatedAt:    updated,
	}, nil
}

func (r *UserRepository) userKey(id string) string {
	return fmt.Sprintf("%s:user:%s", r.prefix, id)
}

func (r *UserRepository) emailKey(email string) string {
	return fmt.Sprintf("%s:user:email:%s", r.prefix, email)
}

func (r *UserRepository) usernameKey(username string) string {
	return fmt.Sprintf("%s:user:username:%s", r.prefix, username)
}

func (r *UserRepository) listKey() string {
	return r.prefix + ":users"
}
