package service

import (
	"context"
	"encoding/json"
	"errors"
	"mocktest_backend/internal/model"
	"mocktest_backend/internal/util"
	"mocktest_backend/pkg/logger"
	"mocktest_backend/pkg/monitoring"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// 下行消息类型
const (
	SocketState     = "state"
	SocketCompleted = "completed"
	SocketConfirm   = "confirm"
	SocketError     = "error"
)

// WSMessage 下行消息
type WSMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// wsCommand 上行指令：select / next / previous / goto / submit
type wsCommand struct {
	Type string `json:"type"`
	Data struct {
		Option    string `json:"option"`
		Index     int    `json:"index"`
		Confirmed bool   `json:"confirmed"`
	} `json:"data"`
}

type socketClient struct {
	sess    *Session
	conn    *websocket.Conn
	send    chan WSMessage
	limiter *rate.Limiter
	ctx     context.Context
}

// ServeSessionWs 将作答会话挂到一条 WebSocket 上：
// 推送状态快照，同时接受作答指令。
func ServeSessionWs(sess *Session, w http.ResponseWriter, r *http.Request) error {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}

	client := &socketClient{
		sess: sess,
		conn: conn,
		send: make(chan WSMessage, 8),
		// 每秒最多 10 条指令，允许突发 20 条
		limiter: rate.NewLimiter(10, 20),
		ctx:     context.WithoutCancel(r.Context()),
	}
	updates, cancel := sess.Subscribe()

	go client.writePump(updates)
	go client.readPump(cancel)
	return nil
}

func (c *socketClient) readPump(unsubscribe func()) {
	defer func() {
		unsubscribe()
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debug("Session socket closed", zap.String("sessionId", c.sess.ID), zap.Error(err))
			}
			return
		}

		if !c.limiter.Allow() {
			continue
		}

		var cmd wsCommand
		if err := json.Unmarshal(message, &cmd); err != nil {
			c.reply(WSMessage{Type: SocketError, Data: messagePayload("malformed message")})
			continue
		}
		monitoring.SocketMessages.WithLabelValues(cmd.Type, "in").Inc()
		c.handle(cmd)
	}
}

// handle 状态变化通过订阅推送，这里只回复错误与确认请求
func (c *socketClient) handle(cmd wsCommand) {
	var err error
	switch cmd.Type {
	case "select":
		var option model.Option
		option, err = model.ParseOption(cmd.Data.Option)
		if err != nil {
			err = util.ErrInvalidOption
			break
		}
		err = c.sess.SelectOption(option)
	case "next":
		err = c.sess.Next()
	case "previous":
		err = c.sess.Previous()
	case "goto":
		err = c.sess.GoTo(cmd.Data.Index)
	case "submit":
		if cmd.Data.Confirmed {
			_, err = c.sess.Submit(c.ctx, model.TriggerManual)
			break
		}
		var confirm bool
		confirm, _, err = c.sess.RequestSubmit(c.ctx)
		if err == nil && confirm {
			c.reply(WSMessage{Type: SocketConfirm, Data: messagePayload(util.ErrConfirmationRequired.Error())})
		}
	default:
		err = errors.New("unknown command")
	}

	if err != nil {
		c.reply(WSMessage{Type: SocketError, Data: messagePayload(err.Error())})
	}
}

// reply 写端繁忙时丢弃
func (c *socketClient) reply(msg WSMessage) {
	select {
	case c.send <- msg:
	default:
	}
}

func (c *socketClient) writePump(updates <-chan SessionState) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				c.conn.SetWriteDeadline(time.Now().Add(writeWait))
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			msgType := SocketState
			if state.Status == StatusCompleted {
				msgType = SocketCompleted
			}
			if err := c.write(WSMessage{Type: msgType, Data: state}); err != nil {
				return
			}
			if msgType == SocketCompleted {
				c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
		case msg := <-c.send:
			if err := c.write(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *socketClient) write(msg WSMessage) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	monitoring.SocketMessages.WithLabelValues(msg.Type, "out").Inc()
	return c.conn.WriteJSON(msg)
}

func messagePayload(message string) map[string]string {
	return map[string]string{"message": message}
}
