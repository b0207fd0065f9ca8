// Package server defines the closed set of frames exchanged over the relay's
// WebSocket protocol and the helpers that encode and decode them.
package server

import (
	"encoding/json"
	"log"
	"time"
)

// FrameType discriminates the frames exchanged with clients. The set is
// closed: inbound frames outside it yield an "Unknown message type" error.
type FrameType string

// Inbound frame types.
const (
	FrameAuth        FrameType = "auth"
	FrameJoinServer  FrameType = "join_server"
	FrameLeaveServer FrameType = "leave_server"
	FrameMessage     FrameType = "message"
	FrameTyping      FrameType = "typing"
)

// Outbound frame types.
const (
	FrameAuthSuccess  FrameType = "auth_success"
	FrameAuthError    FrameType = "auth_error"
	FrameJoinedServer FrameType = "joined_server"
	FrameLeftServer   FrameType = "left_server"
	FrameNewMessage   FrameType = "new_message"
	FrameUserJoined   FrameType = "user_joined"
	FrameUserLeft     FrameType = "user_left"
	FrameNotification FrameType = "notification"
	FrameError        FrameType = "error"
)

// InboundFrame is the envelope for every client-to-server frame. Which
// fields beyond Type are meaningful depends on the operation.
type InboundFrame struct {
	Type        FrameType `json:"type"`
	Token       string    `json:"token,omitempty"`
	ServerID    int64     `json:"serverId,omitempty"`
	Content     string    `json:"content,omitempty"`
	MessageType string    `json:"messageType,omitempty"`
	FileURL     string    `json:"fileUrl,omitempty"`
	IsTyping    bool      `json:"isTyping,omitempty"`
}

func decodeFrame(raw []byte) (*InboundFrame, error) {
	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, err
	}
	return &frame, nil
}

// wireUser is the public identity payload carried by auth_success frames.
type wireUser struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

// wireMessage is the persisted-message payload carried by new_message frames.
// ID and CreatedAt are server-assigned; the sender learns them through the
// room broadcast.
type wireMessage struct {
	ID          int64     `json:"id"`
	ServerID    int64     `json:"serverId"`
	UserID      int64     `json:"userId"`
	UserName    string    `json:"userName"`
	UserRole    string    `json:"userRole"`
	Content     string    `json:"content"`
	MessageType string    `json:"messageType"`
	FileURL     string    `json:"fileUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

func encodeFrame(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("Error encoding outbound frame: %v", err)
		return nil
	}
	return payload
}

func errorFrame(message string) []byte {
	return encodeFrame(struct {
		Type    FrameType `json:"type"`
		Message string    `json:"message"`
	}{FrameError, message})
}

func authErrorFrame(message string) []byte {
	return encodeFrame(struct {
		Type    FrameType `json:"type"`
		Message string    `json:"message"`
	}{FrameAuthError, message})
}

func authSuccessFrame(user wireUser) []byte {
	return encodeFrame(struct {
		Type FrameType `json:"type"`
		User wireUser  `json:"user"`
	}{FrameAuthSuccess, user})
}

func joinedServerFrame(serverID int64) []byte {
	return encodeFrame(struct {
		Type     FrameType `json:"type"`
		ServerID int64     `json:"serverId"`
	}{FrameJoinedServer, serverID})
}

func leftServerFrame() []byte {
	return encodeFrame(struct {
		Type FrameType `json:"type"`
	}{FrameLeftServer})
}

func userJoinedFrame(userID int64, userName string) []byte {
	return encodeFrame(struct {
		Type     FrameType `json:"type"`
		UserID   int64     `json:"userId"`
		UserName string    `json:"userName"`
	}{FrameUserJoined, userID, userName})
}

func userLeftFrame(userID int64, userName string) []byte {
	return encodeFrame(struct {
		Type     FrameType `json:"type"`
		UserID   int64     `json:"userId"`
		UserName string    `json:"userName,omitempty"`
	}{FrameUserLeft, userID, userName})
}

func typingFrame(userID int64, userName string, isTyping bool) []byte {
	return encodeFrame(struct {
		Type     FrameType `json:"type"`
		UserID   int64     `json:"userId"`
		UserName string    `json:"userName"`
		IsTyping bool      `json:"isTyping"`
	}{FrameTyping, userID, userName, isTyping})
}

func newMessageFrame(message wireMessage) []byte {
	return encodeFrame(struct {
		Type    FrameType   `json:"type"`
		Message wireMessage `json:"message"`
	}{FrameNewMessage, message})
}

func notificationFrame(notification any) []byte {
	return encodeFrame(struct {
		Type         FrameType `json:"type"`
		Notification any       `json:"notification"`
	}{FrameNotification, notification})
}
