package chats_test

import (
	"context"
	"errors"
	"testing"

	"chatterbox/backend/internal/apperr"
	"chatterbox/backend/internal/chats"
	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newService(store *storagetest.MockStorage, files *MockFiles) *chats.Service {
	return chats.NewService(store, files, zap.NewNop())
}

func TestGetOrCreateDirectChat_InvalidTarget(t *testing.T) {
	svc := newService(new(storagetest.MockStorage), new(MockFiles))

	_, _, err := svc.GetOrCreateDirectChat("user_A", "")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, _, err = svc.GetOrCreateDirectChat("user_A", "user_A")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestGetOrCreateDirectChat_ReturnsExisting(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	pairKey := models.DirectPairKey("user_A", "user_B")
	existing := &models.Chat{ID: "chat1", Members: []string{"user_A", "user_B"}, PairKey: &pairKey}

	store.On("FindUserByID", "user_B").Return(&models.User{ID: "user_B"}, nil)
	store.On("FindDirectChatByPair", pairKey).Return(existing, nil)
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{{ID: "user_A"}, {ID: "user_B"}}, nil)

	chat, created, err := svc.GetOrCreateDirectChat("user_A", "user_B")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "chat1", chat.ID)
	store.AssertNotCalled(t, "CreateChat", mock.Anything)
}

func TestGetOrCreateDirectChat_CreatesOnce(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	pairKey := models.DirectPairKey("user_B", "user_A")
	var createdChat *models.Chat

	store.On("FindUserByID", "user_B").Return(&models.User{ID: "user_B"}, nil)
	store.On("FindUserByID", "user_A").Return(&models.User{ID: "user_A"}, nil)
	store.On("FindDirectChatByPair", pairKey).Return(nil, nil).Once()
	store.On("CreateChat", mock.AnythingOfType("*models.Chat")).Run(func(args mock.Arguments) {
		createdChat = args.Get(0).(*models.Chat)
		createdChat.ID = "chat1"
	}).Return(nil).Once()
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{{ID: "user_A"}, {ID: "user_B"}}, nil)

	chat, created, err := svc.GetOrCreateDirectChat("user_A", "user_B")
	require.NoError(t, err)
	assert.True(t, created)
	assert.False(t, chat.IsGroup)
	assert.ElementsMatch(t, []string{"user_A", "user_B"}, []string(chat.Members))
	require.NotNil(t, chat.PairKey)
	assert.Equal(t, pairKey, *chat.PairKey)

	// The same pair resolves to the already-created chat afterwards.
	store.On("FindDirectChatByPair", pairKey).Return(createdChat, nil)
	again, created, err := svc.GetOrCreateDirectChat("user_B", "user_A")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, chat.ID, again.ID)
	store.AssertNumberOfCalls(t, "CreateChat", 1)
}

func TestCreateGroup_Validation(t *testing.T) {
	svc := newService(new(storagetest.MockStorage), new(MockFiles))

	_, err := svc.CreateGroup("user_A", "   ", []string{"user_B", "user_C"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.CreateGroup("user_A", "friends", []string{"user_B"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	// Duplicates do not count toward the minimum of three.
	_, err = svc.CreateGroup("user_A", "friends", []string{"user_B", "user_B", "user_A"})
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))
}

func TestCreateGroup_SetsAdmin(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	members := []string{"user_A", "user_B", "user_C"}
	users := []models.User{{ID: "user_A"}, {ID: "user_B"}, {ID: "user_C"}}
	store.On("FindUsersByIDs", members).Return(users, nil)
	store.On("CreateChat", mock.AnythingOfType("*models.Chat")).Return(nil)

	chat, err := svc.CreateGroup("user_A", "friends", []string{"user_B", "user_C"})
	require.NoError(t, err)
	assert.True(t, chat.IsGroup)
	assert.Equal(t, "user_A", chat.AdminID)
	assert.ElementsMatch(t, members, []string(chat.Members))
	require.NotNil(t, chat.Admin)
	assert.Equal(t, "user_A", chat.Admin.ID)
}

func TestRenameGroup(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	group := &models.Chat{
		ID: "chat1", Name: "old", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)
	store.On("FindChatByID", "missing").Return(nil, nil)
	store.On("SaveChat", group).Return(nil)
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{}, nil)

	_, err := svc.RenameGroup("user_A", "chat1", "  ")
	assert.Equal(t, apperr.CodeValidation, apperr.CodeOf(err))

	_, err = svc.RenameGroup("user_A", "missing", "new name")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))

	_, err = svc.RenameGroup("user_B", "chat1", "new name")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	chat, err := svc.RenameGroup("user_A", "chat1", "new name")
	require.NoError(t, err)
	assert.Equal(t, "new name", chat.Name)
}

func TestRenameGroup_DirectChatIsNotAGroup(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	direct := &models.Chat{ID: "chat1", IsGroup: false, Members: []string{"user_A", "user_B"}}
	store.On("FindChatByID", "chat1").Return(direct, nil)

	_, err := svc.RenameGroup("user_A", "chat1", "new name")
	assert.Equal(t, apperr.CodeNotFound, apperr.CodeOf(err))
}

func TestAddMember(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	group := &models.Chat{
		ID: "chat1", Name: "friends", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)
	store.On("FindUserByID", "user_D").Return(&models.User{ID: "user_D"}, nil)
	store.On("SaveChat", group).Return(nil)
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{}, nil)

	_, err := svc.AddMember("user_B", "chat1", "user_D")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))

	_, err = svc.AddMember("user_A", "chat1", "user_B")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	chat, err := svc.AddMember("user_A", "chat1", "user_D")
	require.NoError(t, err)
	assert.True(t, chat.HasMember("user_D"))
	assert.Len(t, chat.Members, 4)
}

// Exercises the full membership scenario: admin leaves, succession
// promotes the first remaining member, and removing the last member
// deletes the chat along with its messages.
func TestGroupMembership_AdminSuccessionAndCascade(t *testing.T) {
	store := new(storagetest.MockStorage)
	files := new(MockFiles)
	svc := newService(store, files)
	ctx := context.Background()

	group := &models.Chat{
		ID: "chat1", Name: "friends", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)
	store.On("SaveChat", group).Return(nil)
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{}, nil)

	// Admin leaves: first remaining member takes over.
	chat, err := svc.LeaveGroup(ctx, "user_A", "chat1")
	require.NoError(t, err)
	assert.Equal(t, "user_B", chat.AdminID)
	assert.ElementsMatch(t, []string{"user_B", "user_C"}, []string(chat.Members))

	// New admin removes the other member.
	chat, err = svc.RemoveMember(ctx, "user_B", "chat1", "user_C")
	require.NoError(t, err)
	assert.Equal(t, "user_B", chat.AdminID)
	assert.Equal(t, []string{"user_B"}, []string(chat.Members))

	// Removing someone who is not a member conflicts.
	_, err = svc.RemoveMember(ctx, "user_B", "chat1", "user_C")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))

	// Removing the last member cascade-deletes the chat.
	store.On("FindFileMessagesByChat", "chat1").Return([]models.Message{}, nil)
	store.On("ClearLatestMessage", "chat1").Return(nil)
	store.On("DeleteMessagesByChat", "chat1").Return(nil)
	store.On("DeleteChat", "chat1").Return(nil)

	chat, err = svc.RemoveMember(ctx, "user_B", "chat1", "user_B")
	require.NoError(t, err)
	assert.Nil(t, chat)
	store.AssertCalled(t, "DeleteMessagesByChat", "chat1")
	store.AssertCalled(t, "DeleteChat", "chat1")
}

func TestDeleteGroup_ReleasesAttachmentsBestEffort(t *testing.T) {
	store := new(storagetest.MockStorage)
	files := new(MockFiles)
	svc := newService(store, files)

	group := &models.Chat{
		ID: "chat1", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)
	store.On("FindFileMessagesByChat", "chat1").Return([]models.Message{
		{ID: 1, ChatID: "chat1", IsFile: true, File: models.FileRef{StorageID: "file_1"}},
		{ID: 2, ChatID: "chat1", IsFile: true, File: models.FileRef{StorageID: "file_2"}},
	}, nil)
	// One release fails; the cascade must still complete.
	files.On("Release", mock.Anything, "file_1").Return(errors.New("store unavailable"))
	files.On("Release", mock.Anything, "file_2").Return(nil)
	store.On("ClearLatestMessage", "chat1").Return(nil)
	store.On("DeleteMessagesByChat", "chat1").Return(nil)
	store.On("DeleteChat", "chat1").Return(nil)

	err := svc.DeleteGroup(context.Background(), "user_A", "chat1")
	require.NoError(t, err)
	files.AssertNumberOfCalls(t, "Release", 2)
	store.AssertCalled(t, "DeleteChat", "chat1")
}

func TestDeleteGroup_Forbidden(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	group := &models.Chat{
		ID: "chat1", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)

	err := svc.DeleteGroup(context.Background(), "user_B", "chat1")
	assert.Equal(t, apperr.CodeForbidden, apperr.CodeOf(err))
	store.AssertNotCalled(t, "DeleteChat", mock.Anything)
}

func TestLeaveGroup_NotAMember(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	group := &models.Chat{
		ID: "chat1", IsGroup: true,
		Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_A",
	}
	store.On("FindChatByID", "chat1").Return(group, nil)

	_, err := svc.LeaveGroup(context.Background(), "user_Z", "chat1")
	assert.Equal(t, apperr.CodeConflict, apperr.CodeOf(err))
}

func TestMyChats_ResolvesMembers(t *testing.T) {
	store := new(storagetest.MockStorage)
	svc := newService(store, new(MockFiles))

	store.On("FindChatsByMember", "user_A").Return([]models.Chat{
		{ID: "chat1", IsGroup: true, Members: []string{"user_A", "user_B", "user_C"}, AdminID: "user_B"},
	}, nil)
	store.On("FindUsersByIDs", mock.Anything).Return([]models.User{
		{ID: "user_A"}, {ID: "user_B"}, {ID: "user_C"},
	}, nil)

	list, err := svc.MyChats("user_A")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Users, 3)
	require.NotNil(t, list[0].Admin)
	assert.Equal(t, "user_B", list[0].Admin.ID)
}
