// Command reviewctl runs legal document reviews from the terminal.
package main

func main() {
	Execute()
}
