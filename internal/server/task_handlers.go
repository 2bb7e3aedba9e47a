package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/nao1215/tasklist/internal/store"
	"github.com/nao1215/tasklist/pkg/middleware"
)

// storeFailureMessage はストア障害時にクライアントへ返す固定メッセージ。
const storeFailureMessage = "Error Try after some time"

// insertResult はタスク追加のレスポンス結果。
type insertResult struct {
	// InsertedID は採番されたタスクの識別子。
	InsertedID string `json:"insertedId"`
}

// deleteResult はタスク削除のレスポンス結果。
type deleteResult struct {
	// DeletedCount は削除されたタスクの件数。
	DeletedCount int64 `json:"deletedCount"`
}

// handleAddTask はタスク追加を処理するハンドラを返す。
// リクエストボディのJSONオブジェクトをそのままタスクとして保存する。
func (s *Server) handleAddTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var task store.Task
		if err := c.ShouldBindJSON(&task); err != nil {
			respondTaskError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		if task == nil {
			task = store.Task{}
		}

		id, err := s.store.InsertTask(c.Request.Context(), task)
		if err != nil {
			s.respondStoreFailure(c, "タスク追加エラー", err)
			return
		}

		respondTask(c, "task added", insertResult{InsertedID: id})
	}
}

// handleListTasks はタスク一覧取得を処理するハンドラを返す。
func (s *Server) handleListTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		tasks, err := s.store.ListTasks(c.Request.Context())
		if err != nil {
			s.respondStoreFailure(c, "タスク一覧取得エラー", err)
			return
		}
		if tasks == nil {
			tasks = []store.Task{}
		}

		respondTask(c, "task list fetched", tasks)
	}
}

// handleGetTask はタスク詳細取得を処理するハンドラを返す。
func (s *Server) handleGetTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		task, err := s.store.GetTask(c.Request.Context(), c.Param("id"))
		if errors.Is(err, store.ErrNotFound) {
			respondTaskError(c, http.StatusNotFound, "Task not found")
			return
		}
		if err != nil {
			s.respondStoreFailure(c, "タスク取得エラー", err)
			return
		}

		respondTask(c, "task fetched", task)
	}
}

// handleUpdateTask はタスクの部分更新を処理するハンドラを返す。
// _id 以外のフィールドで既存のタスクを上書きし、指定されなかったフィールドは保持する。
// 一致するタスクが無い場合も matchedCount=0 として成功を返す。
func (s *Server) handleUpdateTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		var body store.Task
		if err := c.ShouldBindJSON(&body); err != nil {
			respondTaskError(c, http.StatusBadRequest, "Invalid request body")
			return
		}
		id := body.ID()
		if id == "" {
			respondTaskError(c, http.StatusBadRequest, "_id is required")
			return
		}

		result, err := s.store.UpdateTask(c.Request.Context(), id, body.WithoutID())
		if err != nil {
			s.respondStoreFailure(c, "タスク更新エラー", err)
			return
		}

		respondTask(c, "task updated", result)
	}
}

// handleDeleteTask はタスク1件の削除を処理するハンドラを返す。
func (s *Server) handleDeleteTask() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := s.store.DeleteTask(c.Request.Context(), c.Param("id"))
		if err != nil {
			s.respondStoreFailure(c, "タスク削除エラー", err)
			return
		}
		if n == 0 {
			respondTaskError(c, http.StatusNotFound, "Task not found")
			return
		}

		respondTask(c, "task deleted", deleteResult{DeletedCount: n})
	}
}

// handleDeleteTasks は複数タスクの一括削除を処理するハンドラを返す。
// ボディは識別子文字列のJSON配列でなければならない。
func (s *Server) handleDeleteTasks() gin.HandlerFunc {
	return func(c *gin.Context) {
		var ids []string
		if err := c.ShouldBindJSON(&ids); err != nil || len(ids) == 0 {
			respondTaskError(c, http.StatusBadRequest, "No ids provided")
			return
		}

		n, err := s.store.DeleteTasks(c.Request.Context(), ids)
		if err != nil {
			s.respondStoreFailure(c, "タスク一括削除エラー", err)
			return
		}
		if n == 0 {
			c.JSON(http.StatusOK, gin.H{
				"success": false,
				"message": "No tasks deleted",
				"result":  deleteResult{DeletedCount: 0},
			})
			return
		}

		respondTask(c, "tasks deleted", deleteResult{DeletedCount: n})
	}
}

// respondTask はタスク系ルートの成功レスポンスを返す。
func respondTask(c *gin.Context, message string, result any) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": message,
		"result":  result,
	})
}

// respondTaskError はタスク系ルートのエラーレスポンスを返す。
func respondTaskError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{
		"success": false,
		"message": message,
	})
}

// respondStoreFailure はストア障害を記録し、固定メッセージの500を返す。
func (s *Server) respondStoreFailure(c *gin.Context, what string, err error) {
	s.logger.WithError(err).WithFields(log.Fields{
		"method":     c.Request.Method,
		"path":       c.Request.URL.Path,
		"email":      middleware.GetEmail(c),
		"request_id": middleware.GetRequestID(c),
	}).Error(what)
	respondTaskError(c, http.StatusInternalServerError, storeFailureMessage)
}
