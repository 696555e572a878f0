package http

import "math/rand/v2"

var roomNames = []string{
	"Lounge", "Study Group", "Chill Zone", "Work Room", "Music Lovers",
	"Book Club", "Gamer Zone", "Art Room", "Fitness Club", "Travel Group",
	"Cooking Class", "Tech Talk", "Movie Night", "Pet Lovers", "Fashion Room",
	"Parenting", "DIY Projects", "Photography", "History Buffs", "The Playground",
	"Zen Den", "Meme Central", "Creative Corner", "Adventure Club", "Science Lab",
	"Fantasy World", "Gardeners Unite", "Hackers Hub", "Writers Retreat", "Anime Alley",
	"Comics Corner", "Speed Demons", "Crafters Cove", "Astro Lounge", "Underground Lair",
	"Karaoke Club", "Trivia Night", "Puzzle Masters", "Foodies Delight", "Night Owls",
	"Retro Gamers", "Board Gamers", "Card Sharks", "Mystery Solvers", "Sci-Fi Fans",
	"Philosophy Cafe", "Debate Room", "Shutterbugs", "Nature Lovers", "Urban Explorers",
}

// suggestRoomName picks a name short enough to pass room name validation.
func suggestRoomName() string {
	return roomNames[rand.IntN(len(roomNames))]
}
