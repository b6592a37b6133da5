package main

import (
	"fmt"
	"log"
	"os"

	"chatterbox/backend/internal/models"
	"chatterbox/backend/internal/storage"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Small ops CLI against the chat database.
func main() {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			os.Getenv("DB_HOST"),
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_NAME"),
			os.Getenv("DB_PORT"),
		)
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	store := storage.NewService(db, nil) // no redis needed for the admin CLI

	if len(os.Args) < 2 {
		fmt.Println("Usage: admin <stats|purge> [args]")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "stats":
		var users, chats, messages int64
		db.Model(&models.User{}).Count(&users)
		db.Model(&models.Chat{}).Count(&chats)
		db.Model(&models.Message{}).Count(&messages)
		fmt.Printf("users: %d\nchats: %d\nmessages: %d\n", users, chats, messages)

	case "purge":
		if len(os.Args) < 3 {
			fmt.Println("Usage: admin purge <chatID>")
			os.Exit(1)
		}
		chatID := os.Args[2]

		chat, err := store.FindChatByID(chatID)
		if err != nil {
			log.Fatalf("failed to fetch chat: %v", err)
		}
		if chat == nil {
			log.Fatalf("chat %s not found", chatID)
		}

		// Same order as the lifecycle cascade: pointer, messages, chat.
		if err := store.ClearLatestMessage(chatID); err != nil {
			log.Fatalf("failed to clear latest message: %v", err)
		}
		if err := store.DeleteMessagesByChat(chatID); err != nil {
			log.Fatalf("failed to delete messages: %v", err)
		}
		if err := store.DeleteChat(chatID); err != nil {
			log.Fatalf("failed to delete chat: %v", err)
		}
		fmt.Printf("chat %s purged\n", chatID)

	default:
		fmt.Printf("unknown command %q\n", os.Args[1])
		os.Exit(1)
	}
}
