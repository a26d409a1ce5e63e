package board

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"boardflow/domain"
)

// HoverPosition resolves whether a pointer hovering an element means
// "insert before" or "insert after" it: the element's vertical midpoint is
// the split.
func HoverPosition(pointerY, elemTop, elemHeight float64) Position {
	if pointerY < elemTop+elemHeight/2 {
		return Before
	}
	return After
}

// hoverRecord is the single active hover target. It is overwritten on every
// move, never accumulated.
type hoverRecord struct {
	TaskID   string
	Index    int
	Position Position
}

// DragController runs the per-gesture state machine: Start begins a drag,
// Over updates the hover record, Drop commits through the board's
// optimistic engine, and Cancel or Drop always returns the controller to
// idle with all transient state cleared.
//
// Zones track enter/leave depth counters because nested elements fire
// enter and leave events multiple times for one logical drop zone; a depth
// of zero or less means the pointer has fully left the zone.
type DragController struct {
	board  *Board
	logger *log.Logger

	mu         sync.Mutex
	projectID  string
	dragging   string
	fromStatus domain.Status
	fromIndex  int
	snapshot   []domain.Task
	hover      *hoverRecord
	zones      map[string]int
}

// NewDragController creates a controller bound to one board.
func NewDragController(board *Board, logger *log.Logger) *DragController {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &DragController{
		board:  board,
		logger: logger,
		zones:  make(map[string]int),
	}
}

// Start begins a drag gesture for the given task. It records the source
// column and index and retains a snapshot of the full pre-drag list for
// revert. Returns false when the task is not in the cached list or another
// gesture is active.
func (d *DragController) Start(projectID, taskID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.dragging != "" {
		return false
	}
	snapshot := d.board.snapshotTasks(projectID)
	var source *domain.Task
	for i := range snapshot {
		if snapshot[i].ID == taskID {
			source = &snapshot[i]
			break
		}
	}
	if source == nil {
		return false
	}
	column := domain.TasksInStatus(snapshot, source.Status)
	index := 0
	for i := range column {
		if column[i].ID == taskID {
			index = i
			break
		}
	}

	d.projectID = projectID
	d.dragging = taskID
	d.fromStatus = source.Status
	d.fromIndex = index
	d.snapshot = snapshot
	return true
}

// Dragging reports the active gesture's task id.
func (d *DragController) Dragging() (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dragging, d.dragging != ""
}

// EnterZone increments the zone's enter depth.
func (d *DragController) EnterZone(zone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragging == "" {
		return
	}
	d.zones[zone]++
}

// LeaveZone decrements the zone's depth; at zero or below the zone is no
// longer hovered and any hover record inside it is cleared by the next
// Over.
func (d *DragController) LeaveZone(zone string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.zones[zone]; !ok {
		return
	}
	d.zones[zone]--
	if d.zones[zone] <= 0 {
		delete(d.zones, zone)
	}
}

// ZoneHovered reports whether the pointer is logically inside the zone.
func (d *DragController) ZoneHovered(zone string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.zones[zone] > 0
}

// Over records the current hover target from the pointer's position
// relative to the hovered element's box. Only one hover record exists at a
// time.
func (d *DragController) Over(taskID string, index int, pointerY, elemTop, elemHeight float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dragging == "" {
		return
	}
	d.hover = &hoverRecord{
		TaskID:   taskID,
		Index:    index,
		Position: HoverPosition(pointerY, elemTop, elemHeight),
	}
}

// Drop commits the gesture into targetStatus. The target list is the
// column's tasks sorted by current order; a status difference makes this a
// cross-column move carried by the same mutation. With no hover record the
// task is appended to the column. A drop that resolves onto the task's own
// slot in its source column commits nothing. Whatever the outcome, the
// controller returns to idle. Returns false when nothing was committed,
// including when a prior commit for the task is still in flight.
func (d *DragController) Drop(targetStatus domain.Status) bool {
	d.mu.Lock()
	projectID := d.projectID
	taskID := d.dragging
	fromStatus := d.fromStatus
	fromIndex := d.fromIndex
	hover := d.hover
	snapshot := d.snapshot
	d.resetLocked()
	d.mu.Unlock()

	if taskID == "" {
		return false
	}

	current := d.board.snapshotTasks(projectID)
	column := domain.TasksInStatus(current, targetStatus)

	var order int
	if hover == nil {
		if targetStatus == fromStatus && fromIndex == len(column)-1 {
			d.logger.WithField("task", taskID).Debug("drop onto original position, nothing to commit")
			return false
		}
		order = AppendOrder(column)
	} else {
		index := indexOfTask(column, hover.TaskID)
		if index < 0 {
			index = hover.Index
			if index >= len(column) {
				index = len(column) - 1
			}
			if index < 0 {
				index = 0
			}
		}
		if targetStatus == fromStatus && samePosition(fromIndex, index, hover.Position) {
			d.logger.WithField("task", taskID).Debug("drop onto original position, nothing to commit")
			return false
		}
		order = ComputeOrder(column, index, hover.Position)
	}

	ok := d.board.moveTask(projectID, taskID, targetStatus, order, snapshot)
	if !ok {
		d.logger.WithFields(log.Fields{
			"task":   taskID,
			"status": targetStatus,
		}).Debug("drop ignored, prior commit in flight")
	}
	return ok
}

// Cancel aborts the gesture (drag-leave without a drop, or platform
// cancellation) and clears all transient drag state.
func (d *DragController) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// Move runs a complete synthetic gesture: start, optional hover, drop. It
// is the programmatic path the HTTP surface uses, where the client has
// already resolved the target.
func (d *DragController) Move(projectID, taskID string, targetStatus domain.Status, targetTaskID string, pos Position) bool {
	if !d.Start(projectID, taskID) {
		return false
	}
	if targetTaskID != "" {
		current := d.board.snapshotTasks(projectID)
		column := domain.TasksInStatus(current, targetStatus)
		if index := indexOfTask(column, targetTaskID); index >= 0 {
			d.mu.Lock()
			d.hover = &hoverRecord{TaskID: targetTaskID, Index: index, Position: pos}
			d.mu.Unlock()
		}
	}
	return d.Drop(targetStatus)
}

func (d *DragController) resetLocked() {
	d.projectID = ""
	d.dragging = ""
	d.fromStatus = ""
	d.fromIndex = 0
	d.snapshot = nil
	d.hover = nil
	d.zones = make(map[string]int)
}

// samePosition reports whether inserting relative to the task at index
// leaves the dragged task between the neighbors it already has. The
// dragged task still occupies fromIndex in the column at this point, so
// dropping on itself, after its predecessor or before its successor all
// resolve to the slot it came from.
func samePosition(fromIndex, index int, pos Position) bool {
	if pos == Before {
		return index == fromIndex || index == fromIndex+1
	}
	return index == fromIndex || index == fromIndex-1
}

func indexOfTask(tasks []domain.Task, id string) int {
	for i := range tasks {
		if tasks[i].ID == id {
			return i
		}
	}
	return -1
}
