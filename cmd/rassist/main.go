// Command rassist runs the R assistant pipeline service.
package main

func main() {
	Execute()
}
