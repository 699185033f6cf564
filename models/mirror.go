package models

// MirrorPayload is the full state blob exchanged with the remote mirror.
type MirrorPayload struct {
	RequisitionRows  []RequisitionLine `json:"requisitionRows"`
	MasterData       []MasterRecord    `json:"masterData"`
	UploadedFileName string            `json:"uploadedFileName"`
	LastModified     JSONTime          `json:"lastModified"`
	Device           string            `json:"device,omitempty"`
}
