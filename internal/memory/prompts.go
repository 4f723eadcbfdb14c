package memory

// Every prompt receives the user message and assistant reply of one turn.

const longTermPrompt = `You are an expert in finding whether a message should be kept in long term memory or short term memory.
You will get a two message conversation between a user and an assistant. Decide whether the conversation contains something
that should be stored in long term memory.
Your response should be a single word, either 'yes' or 'no'.

Some few shot examples:
- { user : My birthday is on 27th June , assistant : Someone's birthday is coming in a month , Pretty excited for it }
  response :- yes
- { user : what's 2x3 , assistant : 6 }
  response :- no
- { user : Pav Bhaji is my favorite food , assistant : Oh! great , you got a good taste }
  response :- yes
- { user : I recently got admission in NIT Raipur , assistant : Congratulations ! hoping for a bright future }
  response :- yes
- { user : What is polymorphism in OOPS , give answer in short , assistant : Polymorphism is the ability of objects to take on multiple forms. }
  response :- no

Conversation :- {
  user : %s ,
  assistant : %s
}

IMPORTANT:
- Respond yes if something in the conversation should be stored in long term memory, otherwise respond no
- Your response should only be a single word, either yes or no`

const factualPrompt = `You are an expert in finding whether a message should be kept in factual long term memory or episodic long term memory.
You will get a two message conversation between a user and an assistant. Decide whether the conversation contains something
that should be stored as a fact about the user.
Your response should be a single word, either 'yes' or 'no'.

Some few shot examples:
- { user : My favorite color is blue , assistant : Got it! Blue is your favorite color. }
  response :- yes
- { user : I went trekking in Manali last summer. , assistant : Wow, sounds fun! How was your experience? }
  response :- no
- { user : I work at Google as a backend developer , assistant : Okay, so you're a backend developer at Google. How's the work life balance there? }
  response :- yes
- { user : I have turned into a vegetarian , assistant : Great, a step towards kindness and a great culinary choice }
  response :- yes
- { user : I just read Gunaho ke devta last weekend, and I am deeply impacted by it emotionally. , assistant : Yeah, it is a book that shakes your inner core. }
  response :- no

Conversation :- {
  user : %s ,
  assistant : %s
}

IMPORTANT:
- Respond yes if something in the conversation should be stored in factual long term memory, otherwise respond no
- Your response should only be a single word, either yes or no`

const factPrompt = `You are an expert data retriever. Retrieve the important data in as small a sentence as possible, cutting all
unnecessary grammar and language. Retrieve the factual long term memory data from a two message conversation between a user
and an assistant. The data should be precise and accurate.

Some few shot examples:
- { user : My favorite color is blue , assistant : Got it! Blue is your favorite color. }
  response :- User's favorite color blue
- { user : I work at Google as a backend developer , assistant : Okay, so you're a backend developer at Google. }
  response :- User backend developer at google
- { user : I have turned into a vegetarian , assistant : Great, a step towards kindness and a great culinary choice }
  response :- user turned veg

Conversation :- {
  user : %s ,
  assistant : %s
}

Caution:
- Do not add anything of your own
- Output should be a single line holding the factual data`

const graphIntentPrompt = `You are an AI assistant expert in extracting episodic long term memory into a graph. Describe the relations
to create for the conversation below so they can be retrieved later. Existing nodes are reused by label and name, so repeat
them exactly when the conversation mentions them again.

Already present relations of the user :-
%s

Reply with JSON only, in this shape:
{"relations":[{"from":null,"type":"relationType","to":{"label":"Label","name":"entity name","properties":{}},"properties":{}}]}

Rules:
- "from" null means the relation starts at the user; otherwise give {"label":"...","name":"..."} of another node
- labels and relation types are single words of letters, digits or underscores, starting with a letter
- never use the label User
- property values are plain strings, numbers or booleans
- return {"relations":[]} when nothing is worth storing

Some few shot examples:
- { user : I went trekking in Manali last summer. , assistant : Wow, sounds fun! You went trekking in Manali last summer. }
  response :- {"relations":[{"from":null,"type":"traveledTo","to":{"label":"Place","name":"Manali"},"properties":{"event":"Trekking","season":"Summer"}}]}
- { user : I watched Interstellar last weekend, and it blew my mind. , assistant : Got it! You watched Interstellar last weekend. }
  response :- {"relations":[{"from":null,"type":"watchedMovie","to":{"label":"Movie","name":"Interstellar"}}]}
- { user : I tried baking a chocolate cake yesterday, and it turned out great. , assistant : Nice! You baked a chocolate cake yesterday. }
  response :- {"relations":[{"from":null,"type":"cooked","to":{"label":"Dish","name":"Chocolate Cake"}}]}

Conversation :- {
  user : %s ,
  assistant : %s
}

IMPORTANT:
- No markdown and no text around the JSON`

const episodePrompt = `You are an AI assistant expert in extracting episodic long term memory. Give the important information with all
the noise cut down so it can be stored in a vector database for semantic search.

Some few shot examples:
- { user : I went trekking in Manali last summer. , assistant : Wow, sounds fun! You went trekking in Manali last summer. }
  response :- User traveled to Manali for trekking last summer.
- { user : I watched Interstellar last weekend, and it blew my mind. , assistant : Got it! You watched Interstellar last weekend. }
  response :- User watched the movie Interstellar last weekend.
- { user : I tried baking a chocolate cake yesterday, and it turned out great. , assistant : Nice! You baked a chocolate cake yesterday. }
  response :- User baked a chocolate cake yesterday.

Conversation :- {
  user : %s ,
  assistant : %s
}

IMPORTANT:
- Only give the sentence that should go in the vector database, no noise or wrapper text`

const relevantGraphPrompt = `You are an expert data fetching AI assistant. Fetch the relations, connected nodes and available keys
from the graph map that are relevant to the chunks given. Give the most relevant data and filter out everything unnecessary.
- Do not add any context except the graph map data
- The relevant chunks are used to cut down the graph map content, not to add to it
- Do not add any context from your side

Relevant chunks :- %s
Whole graph map :- %s`

const userContextTemplate = `Relations and informations from graph :- %s
Relevant chunks of information about the user :- %s`
