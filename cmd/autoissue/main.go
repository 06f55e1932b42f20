// Command autoissue dispatches open issues from a GitHub repository to
// parallel, isolated task runners, each driving an external coding agent
// in its own git worktree and opening a pull request on success.
package main

func main() {
	Execute()
}
