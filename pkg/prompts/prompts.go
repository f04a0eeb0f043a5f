// Package prompts builds the message lists for every delegating command.
//
// Prompt text is part of the wire contract with the agent-side LLM: savers
// parse what these prompts ask for, so changes here move in lockstep with
// the saver expectations.
package prompts

import (
	"fmt"
	"strings"

	"github.com/rtmcrc/claude-task-master/pkg/llms"
)

func system(text string) llms.Message {
	return llms.Message{Role: "system", Content: text}
}

func user(text string) llms.Message {
	return llms.Message{Role: "user", Content: text}
}

// ParsePRD asks for a task list generated from a PRD document.
func ParsePRD(prdText string, numTasks, nextTaskID int) []llms.Message {
	return []llms.Message{
		system("You are an assistant that breaks a product requirements document into a structured, " +
			"dependency-ordered engineering task list. Respond with a JSON object containing a \"tasks\" " +
			"array and a \"metadata\" object. Each task needs id, title, description, details, " +
			"testStrategy, priority, dependencies and status fields."),
		user(fmt.Sprintf(
			"Generate exactly %d top-level development tasks from the PRD below. Number tasks "+
				"sequentially starting at %d. Dependencies may only reference earlier task ids.\n\nPRD:\n%s",
			numTasks, nextTaskID, prdText)),
	}
}

// ExpandTask asks for subtasks of one existing task.
func ExpandTask(taskJSON string, numSubtasks, nextSubtaskID int, extraContext string) []llms.Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Break the following task into exactly %d well-scoped subtasks. ", numSubtasks)
	fmt.Fprintf(&b, "Number them sequentially starting at %d. ", nextSubtaskID)
	b.WriteString("Respond with a JSON object containing a \"subtasks\" array; each subtask needs " +
		"id, title, description, details, dependencies and status fields.\n\n")
	if extraContext != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", extraContext)
	}
	fmt.Fprintf(&b, "Task:\n%s", taskJSON)

	return []llms.Message{
		system("You are an assistant that decomposes engineering tasks into concrete, ordered subtasks."),
		user(b.String()),
	}
}

// AnalyzeComplexity asks for a complexity assessment of a task batch.
func AnalyzeComplexity(tasksJSON string, threshold int, useResearch bool) []llms.Message {
	sys := "You are an assistant that scores engineering task complexity from 1 to 10 and " +
		"recommends how many subtasks each task should be expanded into. Respond with a JSON array; " +
		"each element needs taskId, taskTitle, complexityScore, recommendedSubtasks, expansionPrompt " +
		"and reasoning fields."
	if useResearch {
		sys += " Ground your scores in current best practices for the technologies involved."
	}
	return []llms.Message{
		system(sys),
		user(fmt.Sprintf(
			"Analyze these tasks. Tasks scoring %d or above should carry an expansionPrompt usable "+
				"to split them later.\n\nTasks:\n%s", threshold, tasksJSON)),
	}
}

// UpdateTask asks for a full rewrite of one task (replace mode).
func UpdateTask(taskJSON, change string) []llms.Message {
	return []llms.Message{
		system("You are an assistant that updates an engineering task to reflect new information. " +
			"Respond with the complete updated task as a single JSON object, preserving the id and " +
			"any completed work. Never change subtasks whose status is done or completed."),
		user(fmt.Sprintf("Update this task according to the change request.\n\nChange request: %s\n\nTask:\n%s",
			change, taskJSON)),
	}
}

// AppendTask asks for free text to append to a task (append mode).
func AppendTask(taskJSON, note string) []llms.Message {
	return []llms.Message{
		system("You are an assistant that writes concise implementation notes for an engineering task. " +
			"Respond with plain text only; it will be appended to the task's details verbatim."),
		user(fmt.Sprintf("Write the note to append.\n\nRequest: %s\n\nTask:\n%s", note, taskJSON)),
	}
}

// UpdateSubtask asks for free text to append to a subtask's details.
func UpdateSubtask(subtaskJSON, note string) []llms.Message {
	return []llms.Message{
		system("You are an assistant that logs implementation progress on a subtask. Respond with " +
			"plain text only; it will be appended to the subtask's details as a timestamped block."),
		user(fmt.Sprintf("Write the progress note.\n\nRequest: %s\n\nSubtask:\n%s", note, subtaskJSON)),
	}
}

// UpdateTasks asks for a rewrite of every task from a given id onward.
func UpdateTasks(tasksJSON, change string) []llms.Message {
	return []llms.Message{
		system("You are an assistant that updates a batch of engineering tasks to reflect a change in " +
			"direction. Respond with a JSON array of complete updated task objects, preserving ids. " +
			"Never change tasks or subtasks whose status is done or completed."),
		user(fmt.Sprintf("Apply this change to every task below.\n\nChange: %s\n\nTasks:\n%s",
			change, tasksJSON)),
	}
}

// AddTask asks for a new task composed from a description.
func AddTask(description string, newTaskID int, existingSummary string) []llms.Message {
	return []llms.Message{
		system("You are an assistant that drafts a single new engineering task. Respond with a JSON " +
			"object containing title, description, details, testStrategy and dependencies fields."),
		user(fmt.Sprintf(
			"Draft task %d from this description. Existing tasks, for dependency context:\n%s\n\nDescription: %s",
			newTaskID, existingSummary, description)),
	}
}

// Research asks for a research answer at a given detail level.
func Research(query, contextText, detailLevel string) []llms.Message {
	sys := "You are a technical research assistant for a software project. Answer precisely and " +
		"cite concrete versions, APIs and trade-offs where relevant."
	switch detailLevel {
	case "low":
		sys += " Keep the answer to a few short paragraphs."
	case "high":
		sys += " Provide an in-depth answer with examples."
	}
	var b strings.Builder
	b.WriteString(query)
	if contextText != "" {
		fmt.Fprintf(&b, "\n\nProject context:\n%s", contextText)
	}
	return []llms.Message{system(sys), user(b.String())}
}
