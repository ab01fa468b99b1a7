package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/teamloft/teamloft/models"
	"github.com/teamloft/teamloft/service"
	"github.com/teamloft/teamloft/store"
)

func TestRegister_HashesPasswordAndLowercasesEmail(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	var created models.User
	mockStore.On("CreateUser", ctx, mock.Anything).Run(func(args mock.Arguments) {
		created = args.Get(1).(models.User)
	}).Return(models.User{Id: "u1", Email: "ada@example.com"}, nil)

	user, err := svc.Register(ctx, "Ada@Example.com", "hunter22", "Ada", "Lovelace")

	assert.NoError(t, err)
	assert.Equal(t, "u1", user.Id)
	assert.Empty(t, user.PasswordHash)

	assert.Equal(t, "ada@example.com", created.Email)
	assert.NotEqual(t, "hunter22", created.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(created.PasswordHash), []byte("hunter22")))
}

func TestRegister_EmailTaken(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("CreateUser", ctx, mock.Anything).Return(models.User{}, store.ErrConditionFailed)

	_, err := svc.Register(ctx, "ada@example.com", "hunter22", "Ada", "Lovelace")
	assert.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestRegister_RejectsBadInput(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "not-an-email", "hunter22", "Ada", "Lovelace")
	assert.Error(t, err)

	_, err = svc.Register(ctx, "ada@example.com", "short", "Ada", "Lovelace")
	assert.Error(t, err)

	mockStore.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything)
}

func storedUser(t *testing.T, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	assert.NoError(t, err)
	return models.User{
		Id:           "u1",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		FirstName:    "Ada",
		LastName:     "Lovelace",
	}
}

func TestLogin_Success(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetUserByEmail", ctx, "ada@example.com").Return(storedUser(t, "hunter22"), nil)

	user, token, err := svc.Login(ctx, "Ada@Example.com", "hunter22")

	assert.NoError(t, err)
	assert.Equal(t, "u1", user.Id)
	assert.Empty(t, user.PasswordHash)
	assert.NotEmpty(t, token)

	userId, email, err := svc.VerifyJWT(token)
	assert.NoError(t, err)
	assert.Equal(t, "u1", userId)
	assert.Equal(t, "ada@example.com", email)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetUserByEmail", ctx, "ada@example.com").Return(storedUser(t, "hunter22"), nil)

	_, _, err := svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetUserByEmail", ctx, "ada@example.com").Return(models.User{}, store.ErrItemNotFound)

	_, _, err := svc.Login(ctx, "ada@example.com", "hunter22")
	assert.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestVerifyJWT_RejectsTamperedToken(t *testing.T) {
	svc, _, _, _, _ := setupService(t)

	token, err := svc.CreateJWT(models.User{Id: "u1", Email: "ada@example.com"})
	assert.NoError(t, err)

	_, _, err = svc.VerifyJWT(token + "x")
	assert.ErrorIs(t, err, service.ErrInvalidToken)

	_, _, err = svc.VerifyJWT("not.a.token")
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestAuthenticateToken_Success(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	mockStore.On("GetUserByEmail", ctx, "ada@example.com").Return(storedUser(t, "hunter22"), nil)

	token, err := svc.CreateJWT(models.User{Id: "u1", Email: "ada@example.com"})
	assert.NoError(t, err)

	user, err := svc.AuthenticateToken(ctx, token)
	assert.NoError(t, err)
	assert.Equal(t, "u1", user.Id)
	assert.Empty(t, user.PasswordHash)
}

func TestAuthenticateToken_IdMismatch(t *testing.T) {
	svc, mockStore, _, _, _ := setupService(t)
	ctx := context.Background()

	// Account was recreated under the same email, old tokens must die
	stored := storedUser(t, "hunter22")
	stored.Id = "u2"
	mockStore.On("GetUserByEmail", ctx, "ada@example.com").Return(stored, nil)

	token, err := svc.CreateJWT(models.User{Id: "u1", Email: "ada@example.com"})
	assert.NoError(t, err)

	_, err = svc.AuthenticateToken(ctx, token)
	assert.ErrorIs(t, err, service.ErrInvalidToken)
}

func TestPresenceInfo(t *testing.T) {
	info := service.PresenceInfo(models.User{
		Id:        "u1",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Avatar:    "https://cdn.example.com/ada.png",
	})

	assert.Equal(t, "u1", info.Id)
	assert.Equal(t, "Ada Lovelace", info.Name)
	assert.Equal(t, "AL", info.Initials)
	assert.Equal(t, "https://cdn.example.com/ada.png", info.Avatar)
}
