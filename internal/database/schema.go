package database

const schema = `
CREATE TABLE IF NOT EXISTS emoji (
    id CHAR(36) PRIMARY KEY,
    user_id VARCHAR(191) NOT NULL,
    prompt TEXT NOT NULL,
    image_url TEXT NOT NULL,
    likes_count INT NOT NULL DEFAULT 0,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    INDEX idx_emoji_user (user_id),
    INDEX idx_emoji_created (created_at),
    INDEX idx_emoji_likes (likes_count)
);

CREATE TABLE IF NOT EXISTS emoji_likes (
    emoji_id CHAR(36) NOT NULL,
    user_id VARCHAR(191) NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (emoji_id, user_id),
    FOREIGN KEY (emoji_id) REFERENCES emoji(id)
);

CREATE TABLE IF NOT EXISTS user_credits (
    user_id VARCHAR(191) PRIMARY KEY,
    credits INT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
);
`
