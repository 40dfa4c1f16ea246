package main

import "github.com/Yzori/Critvue-sub002/internal/app"

func main() {
	app.Run()
}
