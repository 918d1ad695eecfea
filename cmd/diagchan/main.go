// Command diagchan runs, monitors and inspects diagnostics channel realms.
package main

func main() {
	Execute()
}
