// Command memcore-cli is a command-line adapter over the memcore memory
// store: every write, retrieval, maintenance, and ingest operation that a
// host application would otherwise wire into directly.
package main

func main() {
	Execute()
}
