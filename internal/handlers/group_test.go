package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"chat-backend/internal/mocks"
	"chat-backend/internal/models"
	"chat-backend/internal/ws"
)

func setupGroupRouter(handler *GroupHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/groups", handler.CreateGroup)
	r.GET("/groups/:group_id/messages", handler.GetGroupMessages)
	r.POST("/groups/:group_id/messages", handler.PostGroupMessage)
	r.DELETE("/groups/:group_id/messages/:message_id", handler.DeleteGroupMessageForAll)
	r.POST("/groups/:group_id/messages/:message_id/read", handler.MarkGroupRead)
	r.GET("/groups/:group_id/unread", handler.GetGroupUnread)
	return r
}

func TestCreateGroupSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, userRepo, nil, nil)
	router := setupGroupRouter(handler)

	body := bytes.NewBufferString(`{"name":"test","member_ids":[2]}`)

	userRepo.On("BulkUsers", mock.Anything, []int{2}).Return([]models.User{{ID: 2, Username: "bob"}}, nil).Once()
	groupRepo.On("CreateGroup", mock.Anything, 1, "test", []int{2}).Return(models.Group{ID: 5, Name: "test"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestCreateGroupInvalidBody(t *testing.T) {
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.GroupMessageRepositoryMock), new(mocks.UserRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":5}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetGroupMessagesSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, userRepo, nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("ListGroupMessages", mock.Anything, 9).Return([]models.GroupMessage{{ID: 1, GroupID: 9, SenderID: 1}}, nil).Once()
	userRepo.On("BulkUsers", mock.Anything, []int{1}).Return([]models.User{{ID: 1, Username: "me"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/9/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	userRepo.AssertExpectations(t)
}

func TestGetGroupMessagesInvalidID(t *testing.T) {
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.GroupMessageRepositoryMock), new(mocks.UserRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/groups/bad/messages", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPostGroupMessageSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	hub := ws.NewHub()
	handler := NewGroupHandler(groupRepo, messageRepo, nil, hub, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("CreateGroupMessage", mock.Anything, 9, 1, "hey").Return(models.GroupMessage{ID: 3, GroupID: 9, SenderID: 1, Content: "hey"}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestPostGroupMessageInvalidID(t *testing.T) {
	handler := NewGroupHandler(new(mocks.GroupRepositoryMock), new(mocks.GroupMessageRepositoryMock), nil, ws.NewHub(), nil)
	router := setupGroupRouter(handler)

	req := httptest.NewRequest(http.MethodPost, "/groups/abc/messages", bytes.NewBufferString(`{"content":"hey"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateGroupUnknownMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	userRepo := new(mocks.UserRepositoryMock)
	handler := NewGroupHandler(groupRepo, new(mocks.GroupMessageRepositoryMock), userRepo, nil, nil)
	router := setupGroupRouter(handler)

	userRepo.On("BulkUsers", mock.Anything, []int{2, 3}).Return([]models.User{{ID: 2, Username: "bob"}}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups", bytes.NewBufferString(`{"name":"test","member_ids":[2,3]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	groupRepo.AssertNotCalled(t, "CreateGroup", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteGroupMessageForAllWrongGroup(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, nil, ws.NewHub(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("GetGroupMessage", mock.Anything, 3).Return(models.GroupMessage{ID: 3, GroupID: 8, SenderID: 1}, nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/9/messages/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "DeleteForAll", mock.Anything, mock.Anything, mock.Anything)
}

func TestDeleteGroupMessageForAllSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, nil, ws.NewHub(), nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("GetGroupMessage", mock.Anything, 3).Return(models.GroupMessage{ID: 3, GroupID: 9, SenderID: 1}, nil).Once()
	messageRepo.On("DeleteForAll", mock.Anything, 3, 1).Return(nil).Once()

	req := httptest.NewRequest(http.MethodDelete, "/groups/9/messages/3", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestMarkGroupReadSuccess(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("GetGroupMessage", mock.Anything, 4).Return(models.GroupMessage{ID: 4, GroupID: 9, SenderID: 2}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, 9, 1, 4).Return(nil).Once()
	messageRepo.On("UnreadCount", mock.Anything, 9, 1).Return(2, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages/4/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"group_id":9,"unread":2}`, rec.Body.String())
	groupRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestMarkGroupReadWrongGroup(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(true, nil).Once()
	messageRepo.On("GetGroupMessage", mock.Anything, 4).Return(models.GroupMessage{ID: 4, GroupID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/groups/9/messages/4/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetGroupUnreadNotMember(t *testing.T) {
	groupRepo := new(mocks.GroupRepositoryMock)
	messageRepo := new(mocks.GroupMessageRepositoryMock)
	handler := NewGroupHandler(groupRepo, messageRepo, new(mocks.UserRepositoryMock), nil, nil)
	router := setupGroupRouter(handler)

	groupRepo.On("IsMember", mock.Anything, 9, 1).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/groups/9/unread", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "UnreadCount", mock.Anything, mock.Anything, mock.Anything)
}
