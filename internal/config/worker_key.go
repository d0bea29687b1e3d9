package config

type WorkerKeyStruct struct {
	RetestTasksQueue     string
	ViolationEventsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	RetestTasksQueue:     "retest_tasks_queue",
	ViolationEventsQueue: "violation_events_queue",
}
