// Command convoy pulls Slack channel history into a local database and turns
// its threads into tasks with a language model.
//
// Typical use:
//
//	convoy config init
//	convoy sync --channel C123 --start 2024-03-01 --end 2024-03-07
//	convoy generate --channel C123 --start 2024-03-01 --end 2024-03-07 --save
//	convoy tasks list
//	convoy serve
//
// The pipeline steps are also available one at a time: prepare writes the
// threads as JSON, extract runs one thread through the model and merge
// consolidates candidate tasks read from a file.
package main
