// Command usc-run fetches and processes United States Congress data by
// dispatching a data type to its task.
package main

func main() {
	Execute()
}
