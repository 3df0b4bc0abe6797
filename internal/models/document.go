package models

import "time"

// DualContext pairs the two indexed documents a chat refers to.
type DualContext struct {
	StoreIDA  string `json:"storeIdA"`
	StoreIDB  string `json:"storeIdB"`
	FilenameA string `json:"filenameA"`
	FilenameB string `json:"filenameB"`
}

type ChatRequest struct {
	Message string `json:"message"`
	DualContext
}

// PreparedDocument is an uploaded PDF written to a temporary directory,
// ready to be indexed.
type PreparedDocument struct {
	Label    string
	Filename string
	Path     string
	Size     int64
	SHA256   string
}

// IndexedDocument records a PDF that was indexed and the store that holds it.
type IndexedDocument struct {
	StoreID   string
	Filename  string
	SHA256    string
	Size      int64
	CreatedAt time.Time
}
