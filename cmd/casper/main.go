// Casper finds AWS resources that no Terraform state tracks.
package main

func main() {
	Execute()
}
