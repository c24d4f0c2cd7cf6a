package model

import "time"

// ProctorEventType is the numeric integrity-signal code emitted by the capture
// pipeline. The set is closed: ingestion rejects codes outside this enum rather
// than letting them fall through the scoring tables silently.
type ProctorEventType int16

const (
	EventTabSwitched      ProctorEventType = 4
	EventFullscreenExited ProctorEventType = 5
	EventWindowBlur       ProctorEventType = 8
	EventCopyAttempt      ProctorEventType = 10
	EventPasteAttempt     ProctorEventType = 11
	EventRightClick       ProctorEventType = 12
	EventWebcamDenied     ProctorEventType = 16
	EventSnapshotFailed   ProctorEventType = 17
	EventFaceNotDetected  ProctorEventType = 18
	EventMultipleFaces    ProctorEventType = 19
	EventFaceOutOfFrame   ProctorEventType = 20
	EventCameraBlocked    ProctorEventType = 21
	EventHeadTurned       ProctorEventType = 22
)

var proctorEventNames = map[ProctorEventType]string{
	EventTabSwitched:      "tab_switched",
	EventFullscreenExited: "fullscreen_exited",
	EventWindowBlur:       "window_blur",
	EventCopyAttempt:      "copy_attempt",
	EventPasteAttempt:     "paste_attempt",
	EventRightClick:       "right_click",
	EventWebcamDenied:     "webcam_denied",
	EventSnapshotFailed:   "snapshot_failed",
	EventFaceNotDetected:  "face_not_detected",
	EventMultipleFaces:    "multiple_faces",
	EventFaceOutOfFrame:   "face_out_of_frame",
	EventCameraBlocked:    "camera_blocked",
	EventHeadTurned:       "head_turned",
}

func (t ProctorEventType) Valid() bool {
	_, ok := proctorEventNames[t]
	return ok
}

func (t ProctorEventType) String() string {
	if name, ok := proctorEventNames[t]; ok {
		return name
	}
	return "unknown"
}

// ProctorEvent is one detected integrity signal. The table is append-only and
// owned by the external capture pipeline; this core only reads it.
type ProctorEvent struct {
	ID        uint             `gorm:"primarykey" json:"id"`
	AttemptID uint             `json:"attempt_id" gorm:"not null;index"`
	EventType ProctorEventType `json:"event_type" gorm:"not null"`
	Timestamp time.Time        `json:"timestamp" gorm:"not null"`
	CreatedAt time.Time        `json:"created_at"`
}
