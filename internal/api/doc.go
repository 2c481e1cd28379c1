// Package api serves the Convoy HTTP API.
//
// Every response is a JSON object with a boolean "success" field. Failures
// carry an "error" message and a status derived from the error's services
// marker: validation and configuration problems answer 400, missing records
// 404, protected system prompts 409, model timeouts 504 and other upstream
// failures 502.
//
// # Routes
//
//	GET    /api/health                 liveness
//	GET    /api/stats                  stored message, user and task counts
//	POST   /api/sync                   pull a channel range from Slack
//	POST   /api/tasks/prepare          arrange stored messages into threads
//	POST   /api/tasks/extract-thread   extract tasks from one thread
//	POST   /api/tasks/merge            merge candidate tasks
//	POST   /api/tasks/generate         prepare, extract and merge in one call
//	GET    /api/tasks                  list saved tasks
//	POST   /api/tasks                  save a task
//	PUT    /api/tasks/:id              edit a saved task
//	DELETE /api/tasks/:id              delete a saved task
//	GET    /api/prompts                list prompts
//	POST   /api/prompts                create a prompt
//	GET    /api/prompts/:id            fetch a prompt
//	PUT    /api/prompts/:id            edit a user prompt
//	DELETE /api/prompts/:id            delete a user prompt
//	PUT    /api/prompts/:id/default    make a prompt the default
//	GET    /api/ollama/models          list models on an Ollama server
//
// Field names follow the JSON the web UI already sends: camelCase for
// request bodies, snake_case for stored tasks and prompts.
package api
