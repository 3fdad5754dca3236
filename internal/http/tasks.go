package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/animedex/internal/tasks"
)

// TasksController handles task queue management endpoints.
type TasksController struct {
	queue  TaskQueue
	config tasks.Config
}

// NewTasksController creates a new TasksController.
func NewTasksController(queue TaskQueue, cfg tasks.Config) *TasksController {
	return &TasksController{queue: queue, config: cfg}
}

// ListTaskTypes handles GET /api/tasks/types
// Returns the list of available task types that can be triggered.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"task_types": tasks.Types(),
	})
}

// GetTaskStatus handles GET /api/tasks/:id
// Returns the status of a specific task.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")
	if taskID == "" {
		respondBadRequest(c, "task ID is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":     taskID,
		"status": taskStatusToString(status),
	})
}

// RunTask handles POST /api/tasks/:type/run
// Manually triggers a task of the specified type. Arguments come from a
// form or a JSON body.
func (tc *TasksController) RunTask(c *gin.Context) {
	taskType := c.Param("type")

	var req tasks.RunRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBind(&req); err != nil {
			respondBadRequest(c, "invalid task arguments: "+err.Error())
			return
		}
	}

	task, err := tasks.Build(taskType, req, tc.config)
	if errors.Is(err, tasks.ErrUnknownType) {
		respondNotFound(c, "task type "+taskType)
		return
	}
	if err != nil {
		respondBadRequest(c, err.Error())
		return
	}

	ids, err := tc.queue.Enqueue(task)
	if errors.Is(err, tasks.ErrQueueNotRegistered) {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "task type " + taskType + " is not available"})
		return
	}
	if err != nil || len(ids) == 0 {
		if err == nil {
			err = errors.New("no task id returned")
		}
		respondInternalError(c, err, "enqueue "+taskType)
		return
	}

	respondAccepted(c, "task enqueued", gin.H{
		"task_id": ids[0],
		"type":    taskType,
	})
}

func taskStatusToString(status backlite.TaskStatus) string {
	switch status {
	case backlite.TaskStatusPending:
		return "pending"
	case backlite.TaskStatusRunning:
		return "running"
	case backlite.TaskStatusSuccess:
		return "success"
	case backlite.TaskStatusFailure:
		return "failure"
	case backlite.TaskStatusNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}
