// Command lexgest imports statutes, builds the chunk index and answers
// questions from the command line.
package main

func main() {
	Execute()
}
