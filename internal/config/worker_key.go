package config

type WorkerKeyStruct struct {
	PersistDraftsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistDraftsQueue: "persist_drafts_queue",
}
